package remind

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sudarshan/carebuddy/server/logger"
	"github.com/sudarshan/carebuddy/server/models"
)

var logg = logger.NewLogger()

// Mailer is the delivery channel contract the scheduler depends on.
type Mailer interface {
	IsConfigured() bool
	Send(to, subject, body string) error
}

// Clock supplies "now" so ticks can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Scheduler is the routine-reminder ticker. Once started it checks the due
// set every minute and emails owners of routines scheduled for the current
// civil minute, flagging each routine only after its email went out.
type Scheduler struct {
	cronScheduler *gocron.Scheduler
	mailer        Mailer
	clock         Clock
	location      *time.Location

	mu      sync.Mutex
	started bool
}

// NewScheduler builds a reminder scheduler pinned to the given civil time
// zone. A nil clock selects the wall clock.
func NewScheduler(mailer Mailer, timeZone string, clock Clock) (*Scheduler, error) {
	location, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder time zone %q: %v", timeZone, err)
	}

	if clock == nil {
		clock = realClock{}
	}

	scheduler := &Scheduler{
		cronScheduler: gocron.NewScheduler(location),
		mailer:        mailer,
		clock:         clock,
		location:      location,
	}

	// The tick is registered exactly once for the scheduler's lifetime; the
	// timer stays idle until Start. Registering on every Start would leave a
	// restarted scheduler running two concurrent timers.
	scheduler.cronScheduler.Every(1).Minute().Do(scheduler.DeliverDueReminders)

	return scheduler, nil
}

// Start starts the once-per-minute timer. Calling Start on a running
// scheduler is a no-op - a second call must never produce a second
// concurrent timer, and neither must a stop/start cycle.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	s.cronScheduler.StartAsync()

	logg.Info("Routine reminder scheduler started, checking every minute")
}

// Stop prevents future ticks. A tick already in progress is left to finish,
// including its in-flight sends.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false

	s.cronScheduler.Stop()
	logg.Info("Routine reminder scheduler stopped")
}

// DeliverDueReminders runs one tick: resolve the due set for the current
// civil minute and send each owner their reminder. Every failure here is
// logged and contained - a bad routine never aborts the batch, and a bad
// tick never stops the ticker.
func (s *Scheduler) DeliverDueReminders() {
	if !s.mailer.IsConfigured() {
		logg.Debug("Reminder tick skipped - email channel not configured")
		return
	}

	now := s.clock.Now().In(s.location)
	currentMinute := now.Format("15:04")

	dueRoutines, err := models.DueRoutines(currentMinute, startOfDay(now))
	if err != nil {
		logg.Errorf("Reminder tick failed to resolve due routines: %v", err)
		return
	}

	if len(dueRoutines) == 0 {
		return
	}
	logg.Infof("%v routine(s) due at %v, dispatching reminders", len(dueRoutines), currentMinute)

	for _, routine := range dueRoutines {
		owner, err := models.FindUserBy("id", routine.UserID)
		if err != nil {
			logg.Warnf("Skipping routine %v - unable to resolve owner %v: %v", routine.ID, routine.UserID, err)
			continue
		}

		if owner.Email == "" {
			logg.Warnf("Skipping routine %v - owner %v has no email address", routine.ID, owner.ID)
			continue
		}

		subject := fmt.Sprintf("⏰ Reminder: %v", routine.Title)
		err = s.mailer.Send(owner.Email, subject, reminderEmailBody(owner.DisplayName(), &routine))
		if err != nil {
			// Leave the flag untouched so the routine stays in the due set
			// and gets another attempt next tick.
			logg.Errorf("Failed to send reminder for routine %v to %v: %v", routine.ID, owner.Email, err)
			continue
		}

		if err := routine.MarkReminderSent(now); err != nil {
			logg.Errorf("Reminder sent but failed to flag routine %v: %v", routine.ID, err)
			continue
		}

		logg.Infof("Reminder for routine %q sent to %v", routine.Title, owner.Email)
	}
}

// startOfDay is the civil-midnight cutoff used to decide whether a past
// notification still counts for "today".
func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func reminderEmailBody(ownerName string, routine *models.Routine) string {
	return fmt.Sprintf(`
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; border: 1px solid #ddd; border-radius: 8px;">
		<div style="background: #eab308; padding: 20px; text-align: center; color: white;">
			<h2>Routine Reminder</h2>
		</div>
		<div style="padding: 20px; background: #f9f9f9; color: #333;">
			<p>Hello <b>%v</b>,</p>
			<p>It is time for your scheduled routine:</p>
			<h3 style="color: #eab308; text-align: center; font-size: 24px;">%v</h3>
			<p style="text-align: center;">Scheduled at: %v</p>
			<p>Please open the app to mark this task as completed.</p>
		</div>
	</div>`,
		ownerName, routine.Title, routine.Time)
}
