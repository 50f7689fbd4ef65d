package models

import (
	"time"
)

var updatableRoutineFields = []string{"title", "time", "is_completed",
	"email_reminder_sent", "last_notified_at"}

// Routine is a recurring daily wellness slot owned by exactly one user.
// Time is a wall-clock "HH:MM" string interpreted in the server's civil time
// zone. EmailReminderSent and LastNotifiedAt belong to the reminder
// scheduler; users only ever flip IsCompleted or edit Title/Time.
type Routine struct {
	BaseModel
	Title             string     `json:"title" validate:"required"`
	Time              string     `json:"time" validate:"required,time_stamp" gorm:"not null"`
	IsCompleted       bool       `json:"is_completed" gorm:"default:false"`
	EmailReminderSent bool       `json:"email_reminder_sent" gorm:"default:false"`
	LastNotifiedAt    *time.Time `json:"last_notified_at,omitempty"`
	UserID            uint       `json:"user_id" gorm:"not null"`
}

// DueRoutines selects the routines due at the given civil minute: scheduled
// time matches, not completed, and not yet notified today. A routine whose
// last notification predates startOfDay is eligible again, so a slot recurs
// daily even if the midnight maintenance job was missed. Selection alone
// never mutates state.
func DueRoutines(hhmm string, startOfDay time.Time) ([]Routine, error) {
	routines := []Routine{}

	err := db.Where("time = ? AND is_completed = ?", hhmm, false).
		Where("email_reminder_sent = ? OR last_notified_at < ?", false, startOfDay).
		Find(&routines).Error

	if err != nil {
		return nil, err
	}

	return routines, nil
}

// MarkReminderSent flags the routine as notified for the current day. Only
// called after a successful send, so a failed send leaves the routine in the
// due set for the next tick.
func (routine *Routine) MarkReminderSent(sentAt time.Time) error {
	return db.Model(&Routine{}).Where("id = ?", routine.ID).Updates(map[string]interface{}{
		"email_reminder_sent": true,
		"last_notified_at":    sentAt,
	}).Error
}

// Update applies a user edit. Changing the scheduled time or the completion
// state makes the routine eligible for notification again.
func (routine *Routine) Update(data map[string]interface{}) error {
	_, timeChanged := data["time"]
	_, completionChanged := data["is_completed"]
	if timeChanged || completionChanged {
		data["email_reminder_sent"] = false
		data["last_notified_at"] = nil
	}

	return db.Model(routine).Select(updatableRoutineFields).Updates(data).Error
}

// ResetDailyRoutineFlags clears per-day state so every slot starts the new
// day fresh. Run by the midnight maintenance job.
func ResetDailyRoutineFlags() error {
	return db.Model(&Routine{}).
		Where("email_reminder_sent = ? OR is_completed = ?", true, true).
		Updates(map[string]interface{}{
			"email_reminder_sent": false,
			"is_completed":        false,
			"last_notified_at":    nil,
		}).Error
}

func FindRoutine(id interface{}) (*Routine, error) {
	routine := Routine{}
	err := db.First(&routine, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &routine, nil
}

func RoutinesForUser(userID interface{}) ([]Routine, error) {
	routines := []Routine{}

	err := db.Where("user_id = ?", userID).Order("time asc").Find(&routines).Error
	if err != nil {
		return nil, err
	}

	return routines, nil
}

func CreateRoutine(routine *Routine) error {
	return db.Create(routine).Error
}

func DeleteRoutine(id, userID interface{}) error {
	return db.Where("user_id = ?", userID).Delete(&Routine{}, id).Error
}
