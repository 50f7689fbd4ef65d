package remind

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sudarshan/carebuddy/server/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeMailer struct {
	mu         sync.Mutex
	configured bool
	failFor    map[string]bool
	sent       []string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{configured: true, failFor: map[string]bool{}}
}

func (m *fakeMailer) IsConfigured() bool { return m.configured }

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failFor[to] {
		return fmt.Errorf("smtp refused recipient %v", to)
	}
	m.sent = append(m.sent, to)
	return nil
}

func (m *fakeMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.sent...)
}

func createUserWithRoutine(t *testing.T, email, hhmm string) (*models.User, *models.Routine) {
	user := &models.User{
		FirstName: "Ama",
		LastName:  "Mensah",
		Email:     email,
		Password:  "super-secret-1",
	}
	assert.NoError(t, models.CreateUser(user))

	routine := &models.Routine{
		Title:  "Take morning medication",
		Time:   hhmm,
		UserID: user.ID,
	}
	assert.NoError(t, models.CreateRoutine(routine))

	return user, routine
}

func newTestScheduler(t *testing.T, mailer Mailer, clock Clock) *Scheduler {
	scheduler, err := NewScheduler(mailer, "UTC", clock)
	assert.NoError(t, err)
	return scheduler
}

func TestDeliverDueReminders(t *testing.T) {
	models.InitializeTestDb()

	now := time.Date(2022, time.March, 5, 9, 30, 0, 0, time.UTC)
	clock := &fakeClock{now: now}
	mailer := newFakeMailer()
	scheduler := newTestScheduler(t, mailer, clock)

	_, due := createUserWithRoutine(t, "ama@example.com", "09:30")
	createUserWithRoutine(t, "kofi@example.com", "18:00")

	scheduler.DeliverDueReminders()

	assert.Equal(t, []string{"ama@example.com"}, mailer.sentTo())

	updated, err := models.FindRoutine(due.ID)
	assert.NoError(t, err)
	assert.True(t, updated.EmailReminderSent)
	assert.NotNil(t, updated.LastNotifiedAt)
}

func TestDeliverDueRemindersSendsAtMostOncePerDay(t *testing.T) {
	models.InitializeTestDb()

	clock := &fakeClock{now: time.Date(2022, time.March, 5, 9, 30, 0, 0, time.UTC)}
	mailer := newFakeMailer()
	scheduler := newTestScheduler(t, mailer, clock)

	createUserWithRoutine(t, "ama@example.com", "09:30")

	scheduler.DeliverDueReminders()
	scheduler.DeliverDueReminders()

	assert.Len(t, mailer.sentTo(), 1)

	// The same slot becomes eligible again after midnight.
	clock.now = clock.now.Add(24 * time.Hour)
	scheduler.DeliverDueReminders()

	assert.Len(t, mailer.sentTo(), 2)
}

func TestDeliverDueRemindersIsolatesFailures(t *testing.T) {
	models.InitializeTestDb()

	clock := &fakeClock{now: time.Date(2022, time.March, 5, 9, 30, 0, 0, time.UTC)}
	mailer := newFakeMailer()
	mailer.failFor["broken@example.com"] = true
	scheduler := newTestScheduler(t, mailer, clock)

	createUserWithRoutine(t, "ama@example.com", "09:30")
	_, failed := createUserWithRoutine(t, "broken@example.com", "09:30")
	createUserWithRoutine(t, "kofi@example.com", "09:30")

	scheduler.DeliverDueReminders()

	assert.ElementsMatch(t, []string{"ama@example.com", "kofi@example.com"}, mailer.sentTo())

	// The failed routine keeps its flag clear and is retried next tick.
	updated, err := models.FindRoutine(failed.ID)
	assert.NoError(t, err)
	assert.False(t, updated.EmailReminderSent)

	mailer.failFor = map[string]bool{}
	scheduler.DeliverDueReminders()
	assert.Len(t, mailer.sentTo(), 3)
}

func TestDeliverDueRemindersSkipsCompletedRoutines(t *testing.T) {
	models.InitializeTestDb()

	clock := &fakeClock{now: time.Date(2022, time.March, 5, 9, 30, 0, 0, time.UTC)}
	mailer := newFakeMailer()
	scheduler := newTestScheduler(t, mailer, clock)

	_, routine := createUserWithRoutine(t, "ama@example.com", "09:30")
	assert.NoError(t, routine.Update(map[string]interface{}{"is_completed": true}))

	scheduler.DeliverDueReminders()

	assert.Empty(t, mailer.sentTo())
}

func TestDeliverDueRemindersNoopWhenMailerUnconfigured(t *testing.T) {
	models.InitializeTestDb()

	clock := &fakeClock{now: time.Date(2022, time.March, 5, 9, 30, 0, 0, time.UTC)}
	mailer := newFakeMailer()
	mailer.configured = false
	scheduler := newTestScheduler(t, mailer, clock)

	_, routine := createUserWithRoutine(t, "ama@example.com", "09:30")

	scheduler.DeliverDueReminders()

	assert.Empty(t, mailer.sentTo())

	// Nothing was flagged either, since no send was attempted.
	updated, err := models.FindRoutine(routine.ID)
	assert.NoError(t, err)
	assert.False(t, updated.EmailReminderSent)
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	models.InitializeTestDb()

	mailer := newFakeMailer()
	scheduler := newTestScheduler(t, mailer, &fakeClock{now: time.Now()})

	scheduler.Start()
	scheduler.Start()
	defer scheduler.Stop()

	assert.Len(t, scheduler.cronScheduler.Jobs(), 1)
}

func TestSchedulerRestartKeepsSingleTimer(t *testing.T) {
	models.InitializeTestDb()

	mailer := newFakeMailer()
	scheduler := newTestScheduler(t, mailer, &fakeClock{now: time.Now()})

	scheduler.Start()
	scheduler.Stop()
	scheduler.Start()
	defer scheduler.Stop()

	assert.Len(t, scheduler.cronScheduler.Jobs(), 1)
}

func TestNewSchedulerRejectsBadTimeZone(t *testing.T) {
	_, err := NewScheduler(newFakeMailer(), "Not/AZone", nil)
	assert.Error(t, err)
}
