package sos

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sudarshan/carebuddy/server/models"
)

type fakeMailer struct {
	configured bool
	failFor    map[string]bool
	sent       []string
	bodies     []string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{configured: true, failFor: map[string]bool{}}
}

func (m *fakeMailer) IsConfigured() bool { return m.configured }

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.failFor[to] {
		return fmt.Errorf("smtp refused recipient %v", to)
	}
	m.sent = append(m.sent, to)
	m.bodies = append(m.bodies, body)
	return nil
}

type fakeTexter struct {
	configured bool
	sent       []string
}

func (t *fakeTexter) IsConfigured() bool { return t.configured }

func (t *fakeTexter) SendMessage(to, message string) error {
	t.sent = append(t.sent, to)
	return nil
}

func createUserWithContacts(t *testing.T, contacts []models.Contact) *models.User {
	user := &models.User{
		FirstName: "Ama",
		LastName:  "Mensah",
		Email:     "ama@example.com",
		Password:  "super-secret-1",
	}
	assert.NoError(t, models.CreateUser(user))
	assert.NoError(t, user.ReplaceContacts(contacts))
	return user
}

func TestDispatchFansOutToAllContacts(t *testing.T) {
	models.InitializeTestDb()

	mailer := newFakeMailer()
	dispatcher := NewDispatcher(mailer, nil, "UTC")

	user := createUserWithContacts(t, []models.Contact{
		{Name: "Kofi", Email: "kofi@example.com"},
		{Name: "Esi", Email: "esi@example.com"},
	})

	summary := dispatcher.Dispatch(user, 12.9, 77.6)

	assert.ElementsMatch(t, []string{"kofi@example.com", "esi@example.com"}, mailer.sent)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 2, summary.Delivered)
	assert.Zero(t, summary.Failed)
	assert.False(t, summary.Simulated)
	assert.Contains(t, summary.Message, "Ama Mensah")
	assert.Contains(t, summary.Message, "https://www.google.com/maps/search/?api=1&query=12.9,77.6")
}

func TestDispatchIsolatesChannelFailures(t *testing.T) {
	models.InitializeTestDb()

	mailer := newFakeMailer()
	mailer.failFor["broken@example.com"] = true
	dispatcher := NewDispatcher(mailer, nil, "UTC")

	user := createUserWithContacts(t, []models.Contact{
		{Name: "Kofi", Email: "kofi@example.com"},
		{Name: "Broken", Email: "broken@example.com"},
		{Name: "Esi", Email: "esi@example.com"},
	})

	summary := dispatcher.Dispatch(user, 12.9, 77.6)

	assert.ElementsMatch(t, []string{"kofi@example.com", "esi@example.com"}, mailer.sent)
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Delivered)
	assert.Equal(t, 1, summary.Failed)
}

func TestDispatchSimulatesWhenUnconfigured(t *testing.T) {
	models.InitializeTestDb()

	mailer := newFakeMailer()
	mailer.configured = false
	dispatcher := NewDispatcher(mailer, nil, "UTC")

	user := createUserWithContacts(t, []models.Contact{
		{Name: "Kofi", Email: "kofi@example.com"},
		{Name: "Esi", Email: "esi@example.com"},
	})

	summary := dispatcher.Dispatch(user, 12.9, 77.6)

	assert.Empty(t, mailer.sent)
	assert.True(t, summary.Simulated)
	assert.ElementsMatch(t, []string{"Kofi", "Esi"}, summary.SimulatedContacts)
	assert.Zero(t, summary.Attempted)
}

func TestDispatchTextsEmaillessContacts(t *testing.T) {
	models.InitializeTestDb()

	mailer := newFakeMailer()
	texter := &fakeTexter{configured: true}
	dispatcher := NewDispatcher(mailer, texter, "UTC")

	user := createUserWithContacts(t, []models.Contact{
		{Name: "Kofi", Email: "kofi@example.com"},
		{Name: "Esi", PhoneNumber: "+14155550100"},
		{Name: "Yaw"},
	})

	summary := dispatcher.Dispatch(user, 12.9, 77.6)

	assert.Equal(t, []string{"kofi@example.com"}, mailer.sent)
	assert.Equal(t, []string{"+14155550100"}, texter.sent)
	assert.Equal(t, 2, summary.Delivered)
	assert.Equal(t, 1, summary.Skipped)
}

func TestDispatchStampsAlertsInConfiguredZone(t *testing.T) {
	models.InitializeTestDb()

	mailer := newFakeMailer()
	dispatcher := NewDispatcher(mailer, nil, "Asia/Kolkata")

	user := createUserWithContacts(t, []models.Contact{
		{Name: "Kofi", Email: "kofi@example.com"},
		{Name: "Esi", Email: "esi@example.com"},
	})

	summary := dispatcher.Dispatch(user, 12.9, 77.6)

	// The summary message and every email carry one shared timestamp,
	// rendered in the dispatcher's zone rather than the server's.
	_, after, found := strings.Cut(summary.Message, "Time: ")
	assert.True(t, found)
	stamp, _, found := strings.Cut(after, ". Location:")
	assert.True(t, found)
	assert.True(t, strings.HasSuffix(stamp, "IST"), "expected %q to be stamped in IST", stamp)

	assert.Len(t, mailer.bodies, 2)
	for _, body := range mailer.bodies {
		assert.Contains(t, body, stamp)
	}
}

func TestNewDispatcherFallsBackToUTC(t *testing.T) {
	dispatcher := NewDispatcher(newFakeMailer(), nil, "Not/AZone")
	assert.Equal(t, time.UTC, dispatcher.location)
}

func TestDeliverableAddress(t *testing.T) {
	assert.Equal(t, "kofi@example.com", DeliverableAddress(&models.Contact{Email: "kofi@example.com"}))

	// Older records sometimes carry the address in the phone-number column.
	assert.Equal(t, "esi@example.com", DeliverableAddress(&models.Contact{PhoneNumber: "esi@example.com"}))

	assert.Equal(t, "", DeliverableAddress(&models.Contact{PhoneNumber: "+14155550100"}))
	assert.Equal(t, "", DeliverableAddress(&models.Contact{}))
}
