package sos

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/sudarshan/carebuddy/server/logger"
	"github.com/sudarshan/carebuddy/server/models"
)

var logg = logger.NewLogger()

// Mailer is the email channel used for the emergency fanout.
type Mailer interface {
	IsConfigured() bool
	Send(to, subject, body string) error
}

// Texter is the optional SMS side-channel for contacts reachable only by
// phone number.
type Texter interface {
	IsConfigured() bool
	SendMessage(to, message string) error
}

// DispatchSummary reports what happened to each registered contact during a
// fanout. Simulated is set when no channel was configured and the alert was
// logged instead of delivered.
type DispatchSummary struct {
	Message           string   `json:"message"`
	Attempted         int      `json:"attempted"`
	Delivered         int      `json:"delivered"`
	Skipped           int      `json:"skipped"`
	Failed            int      `json:"failed"`
	Simulated         bool     `json:"simulated"`
	SimulatedContacts []string `json:"simulated_contacts,omitempty"`
}

// Dispatcher fans an emergency alert out to every contact a user has
// registered. A failure for one contact never short-circuits the rest.
type Dispatcher struct {
	mailer   Mailer
	texter   Texter
	location *time.Location
}

func NewDispatcher(mailer Mailer, texter Texter, timeZone string) *Dispatcher {
	location, err := time.LoadLocation(timeZone)
	if err != nil {
		logg.Warnf("Invalid time zone %q for emergency dispatcher, falling back to UTC", timeZone)
		location = time.UTC
	}

	return &Dispatcher{mailer: mailer, texter: texter, location: location}
}

// Dispatch sends the alert for user at the given coordinates to every one of
// their contacts. The returned summary is never nil; channel errors are
// recorded per-contact rather than returned.
func (dispatcher *Dispatcher) Dispatch(user *models.User, lat, lng float64) *DispatchSummary {
	// Every contact sees the same timestamp, rendered in the configured zone.
	sentAt := time.Now().In(dispatcher.location)

	message := alertMessage(user.DisplayName(), sentAt, lat, lng)
	summary := &DispatchSummary{Message: message}

	if err := user.LoadContacts(); err != nil {
		logg.Errorf("Emergency dispatch for user %v could not load contacts: %v", user.ID, err)
		return summary
	}

	if len(user.Contacts) == 0 {
		logg.Warnf("Emergency dispatch for user %v found no registered contacts", user.ID)
		return summary
	}

	if !dispatcher.mailer.IsConfigured() {
		// No outbound channel - fall back to the simulated fanout so the
		// caller still gets a full accounting of who would have been alerted.
		return dispatcher.simulate(user, summary)
	}

	for _, contact := range user.Contacts {
		address := DeliverableAddress(&contact)
		if address == "" {
			dispatcher.textOrSkip(&contact, message, summary)
			continue
		}

		summary.Attempted++
		err := dispatcher.mailer.Send(address, "🚨 EMERGENCY ALERT 🚨", alertEmailBody(user.DisplayName(), &contact, sentAt, lat, lng))
		if err != nil {
			summary.Failed++
			logg.Errorf("Emergency alert to %v (%v) failed: %v", contact.Name, address, err)
			continue
		}

		summary.Delivered++
		logg.Infof("Emergency alert delivered to %v (%v)", contact.Name, address)
	}

	return summary
}

// textOrSkip tries the SMS channel for an email-less contact, or records a
// skip when no usable channel exists.
func (dispatcher *Dispatcher) textOrSkip(contact *models.Contact, message string, summary *DispatchSummary) {
	if contact.PhoneNumber == "" || dispatcher.texter == nil || !dispatcher.texter.IsConfigured() {
		summary.Skipped++
		logg.Warnf("Emergency alert skipped for %v - no deliverable address", contact.Name)
		return
	}

	summary.Attempted++
	if err := dispatcher.texter.SendMessage(contact.PhoneNumber, message); err != nil {
		summary.Failed++
		logg.Errorf("Emergency SMS to %v (%v) failed: %v", contact.Name, contact.PhoneNumber, err)
		return
	}

	summary.Delivered++
	logg.Infof("Emergency SMS delivered to %v (%v)", contact.Name, contact.PhoneNumber)
}

// simulate logs the alert for every contact instead of delivering it and
// returns the names of everyone who would have been notified.
func (dispatcher *Dispatcher) simulate(user *models.User, summary *DispatchSummary) *DispatchSummary {
	summary.Simulated = true

	logg.Warnf("Email channel not configured - simulating emergency fanout for user %v", user.ID)
	logg.Infof("SIMULATED ALERT: %v", summary.Message)

	for _, contact := range user.Contacts {
		summary.SimulatedContacts = append(summary.SimulatedContacts, contact.Name)
		logg.Infof("SIMULATED ALERT -> %v (%v)", contact.Name, DeliverableAddress(&contact))
	}

	return summary
}

// DeliverableAddress picks the email address an alert for contact should go
// to. Some older records hold the address in the phone-number column, so a
// phone value that parses as an email is accepted too.
func DeliverableAddress(contact *models.Contact) string {
	if contact.Email != "" {
		return contact.Email
	}

	if _, err := mail.ParseAddress(contact.PhoneNumber); err == nil {
		return contact.PhoneNumber
	}

	return ""
}

func alertMessage(displayName string, sentAt time.Time, lat, lng float64) string {
	return fmt.Sprintf(
		"URGENT EMERGENCY! %v requires immediate assistance. Time: %v. Location: %v",
		displayName,
		sentAt.Format(time.RFC1123),
		mapsLink(lat, lng),
	)
}

func mapsLink(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%v,%v", lat, lng)
}

func alertEmailBody(displayName string, contact *models.Contact, sentAt time.Time, lat, lng float64) string {
	return fmt.Sprintf(`
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; border: 2px solid #dc2626; border-radius: 8px;">
		<div style="background: #dc2626; padding: 20px; text-align: center; color: white;">
			<h2>🚨 EMERGENCY ALERT 🚨</h2>
		</div>
		<div style="padding: 20px; background: #fef2f2; color: #333;">
			<p>Hello <b>%v</b>,</p>
			<p><b>%v</b> has triggered an emergency alert and requires immediate assistance.</p>
			<p><b>Time:</b> %v</p>
			<p style="text-align: center; margin: 24px 0;">
				<a href="%v" style="background: #dc2626; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">
					View Last Known Location
				</a>
			</p>
			<p>Please try to reach them right away.</p>
		</div>
	</div>`,
		contact.Name, displayName, sentAt.Format(time.RFC1123), mapsLink(lat, lng))
}
