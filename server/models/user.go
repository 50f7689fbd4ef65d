package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sudarshan/carebuddy/server/auth"
	"gorm.io/gorm"
)

var (
	allFieldsExceptPassword = []string{"id",
		"first_name",
		"last_name",
		"phone_number",
		"email",
		"blood_group",
		"role_id",
		"last_latitude",
		"last_longitude",
		"location_updated_at",
		"created_at",
		"updated_at",
	}

	updatableFields = []string{"first_name",
		"last_name",
		"phone_number",
		"blood_group",
		"password",
	}
)

type User struct {
	BaseModel
	FirstName         string     `json:"first_name" validate:"required"`
	LastName          string     `json:"last_name" validate:"required"`
	PhoneNumber       string     `json:"phone_number,omitempty" validate:"omitempty,e164"`
	Email             string     `json:"email" validate:"required,email" gorm:"not null;unique"`
	Password          string     `json:"password,omitempty" validate:"required,password" gorm:"not null"`
	BloodGroup        string     `json:"blood_group,omitempty"`
	RoleID            uint       `json:"role_id" gorm:"null"`
	LastLatitude      *float64   `json:"last_latitude,omitempty"`
	LastLongitude     *float64   `json:"last_longitude,omitempty"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty"`
	Contacts          []Contact  `json:"contacts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Routines          []Routine  `json:"routines,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// DisplayName is the name used in reminder & alert message bodies.
func (user *User) DisplayName() string {
	return strings.TrimSpace(fmt.Sprintf("%v %v", user.FirstName, user.LastName))
}

func (user *User) Update(data map[string]interface{}) error {
	if data["password"] != nil {
		passwordHash, err := auth.HashPassword(data["password"].(string))
		if err != nil {
			return err
		}
		data["password"] = passwordHash
	}

	return db.Model(&User{}).Where("id = ?", user.ID).Select(updatableFields).Updates(data).Error
}

// UpdateLastLocation records the most recent coordinate shared by the user.
// The reminder & SOS cores never read it; coordinates are supplied per request.
func (user *User) UpdateLastLocation(lat, lng float64) error {
	return db.Model(&User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"last_latitude":       lat,
		"last_longitude":      lng,
		"location_updated_at": time.Now(),
	}).Error
}

func (user *User) IsAdmin() (bool, error) {
	if user.RoleID == 0 {
		return false, nil
	}

	adminRole, err := FindRole(ADMIN_USER_ROLE)
	if err != nil {
		return false, err
	}

	return adminRole.ID == user.RoleID, nil
}

func (user *User) LoadContacts() error {
	return db.Order("id asc").Limit(500).Find(&user.Contacts, "user_id = ?", user.ID).Error
}

// ReplaceContacts swaps the user's emergency contact list for the one
// provided, preserving list order via insertion order.
func (user *User) ReplaceContacts(contacts []Contact) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&Contact{}).Error; err != nil {
			return err
		}

		for i := range contacts {
			contacts[i].ID = 0
			contacts[i].UserID = user.ID
			if err := tx.Create(&contacts[i]).Error; err != nil {
				return err
			}
		}

		user.Contacts = contacts
		return nil
	})
}

func FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := db.Select(allFieldsExceptPassword).First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func FindUserPassword(email string) (string, error) {
	user := &User{}
	err := db.Select("Password").First(user, "email = ?", email).Error

	if err != nil {
		return "", err
	}
	return user.Password, nil
}

func CreateUser(user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	return db.Create(user).Error
}

func DeleteUser(id interface{}) error {
	return db.Delete(&User{}, id).Error
}

func AtLeastOneUserExists() (bool, error) {
	err := db.First(&User{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
