package models

// Contact is an emergency contact for a user. PhoneNumber and Email are both
// optional at rest; a contact is only deliverable over email if it resolves
// to an email address at dispatch time.
type Contact struct {
	BaseModel
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	UserID      uint   `json:"user_id" gorm:"not null"`
}
