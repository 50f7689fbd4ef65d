package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func createTestUser(t *testing.T, email string) *User {
	user := &User{
		FirstName: "Ama",
		LastName:  "Mensah",
		Email:     email,
		Password:  "super-secret-1",
	}
	assert.NoError(t, CreateUser(user))
	return user
}

func TestDueRoutines(t *testing.T) {
	InitializeTestDb()

	user := createTestUser(t, "ama@example.com")
	now := time.Date(2022, time.March, 5, 9, 30, 0, 0, time.UTC)
	midnight := time.Date(2022, time.March, 5, 0, 0, 0, 0, time.UTC)

	matching := &Routine{Title: "Morning walk", Time: "09:30", UserID: user.ID}
	assert.NoError(t, CreateRoutine(matching))
	assert.NoError(t, CreateRoutine(&Routine{Title: "Evening meds", Time: "18:00", UserID: user.ID}))

	completed := &Routine{Title: "Breakfast", Time: "09:30", UserID: user.ID}
	assert.NoError(t, CreateRoutine(completed))
	assert.NoError(t, completed.Update(map[string]interface{}{"is_completed": true}))

	dueRoutines, err := DueRoutines("09:30", midnight)
	assert.NoError(t, err)
	assert.Len(t, dueRoutines, 1)
	assert.Equal(t, matching.ID, dueRoutines[0].ID)

	// Adjacent minutes never match.
	for _, minute := range []string{"09:29", "09:31"} {
		dueRoutines, err = DueRoutines(minute, midnight)
		assert.NoError(t, err)
		assert.Empty(t, dueRoutines)
	}

	// Once flagged, the routine drops out of the due set for the day...
	assert.NoError(t, matching.MarkReminderSent(now))

	dueRoutines, err = DueRoutines("09:30", midnight)
	assert.NoError(t, err)
	assert.Empty(t, dueRoutines)

	// ...but is due again after the next midnight.
	nextMidnight := midnight.Add(24 * time.Hour)
	dueRoutines, err = DueRoutines("09:30", nextMidnight)
	assert.NoError(t, err)
	assert.Len(t, dueRoutines, 1)
}

func TestRoutineUpdateResetsReminderState(t *testing.T) {
	InitializeTestDb()

	user := createTestUser(t, "ama@example.com")
	now := time.Date(2022, time.March, 5, 9, 30, 0, 0, time.UTC)

	routine := &Routine{Title: "Morning walk", Time: "09:30", UserID: user.ID}
	assert.NoError(t, CreateRoutine(routine))
	assert.NoError(t, routine.MarkReminderSent(now))

	// Editing the title alone leaves reminder state untouched.
	assert.NoError(t, routine.Update(map[string]interface{}{"title": "Long morning walk"}))

	updated, err := FindRoutine(routine.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Long morning walk", updated.Title)
	assert.True(t, updated.EmailReminderSent)

	// Rescheduling makes the routine notifiable again.
	assert.NoError(t, routine.Update(map[string]interface{}{"time": "10:00"}))

	updated, err = FindRoutine(routine.ID)
	assert.NoError(t, err)
	assert.Equal(t, "10:00", updated.Time)
	assert.False(t, updated.EmailReminderSent)
	assert.Nil(t, updated.LastNotifiedAt)
}

func TestResetDailyRoutineFlags(t *testing.T) {
	InitializeTestDb()

	user := createTestUser(t, "ama@example.com")
	now := time.Date(2022, time.March, 5, 9, 30, 0, 0, time.UTC)

	notified := &Routine{Title: "Morning walk", Time: "09:30", UserID: user.ID}
	assert.NoError(t, CreateRoutine(notified))
	assert.NoError(t, notified.MarkReminderSent(now))

	completed := &Routine{Title: "Breakfast", Time: "08:00", UserID: user.ID}
	assert.NoError(t, CreateRoutine(completed))
	assert.NoError(t, completed.Update(map[string]interface{}{"is_completed": true}))

	assert.NoError(t, ResetDailyRoutineFlags())

	for _, id := range []uint{notified.ID, completed.ID} {
		routine, err := FindRoutine(id)
		assert.NoError(t, err)
		assert.False(t, routine.EmailReminderSent)
		assert.False(t, routine.IsCompleted)
		assert.Nil(t, routine.LastNotifiedAt)
	}
}

func TestDeleteRoutineIsScopedToOwner(t *testing.T) {
	InitializeTestDb()

	owner := createTestUser(t, "ama@example.com")
	other := createTestUser(t, "kofi@example.com")

	routine := &Routine{Title: "Morning walk", Time: "09:30", UserID: owner.ID}
	assert.NoError(t, CreateRoutine(routine))

	// A different user cannot delete the routine.
	assert.NoError(t, DeleteRoutine(routine.ID, other.ID))
	_, err := FindRoutine(routine.ID)
	assert.NoError(t, err)

	assert.NoError(t, DeleteRoutine(routine.ID, owner.ID))
	_, err = FindRoutine(routine.ID)
	assert.Error(t, err)
}
