// Package whatsapp drives the browser-automated WhatsApp Web channel used
// for resident-facing messaging: approval requests, OTP delivery and
// delivery notices.
package whatsapp

import (
	"context"

	"smartlocker-workers/internal/models"
)

// Client drives one logged-in WhatsApp Web instance. Implementations own
// the underlying automation handle; callers never touch the browser
// directly.
type Client interface {
	// Establish opens the channel and completes QR pairing when the
	// profile is not already logged in. The session record is updated in
	// place (status, QR reference, error detail).
	Establish(ctx context.Context, session *models.ChannelSession) error

	// Send delivers a text message to the phone number through the open
	// channel.
	Send(ctx context.Context, phoneNumber, message string) error

	// PollLatest returns the newest incoming message in the chat with the
	// given number, trimmed and upper-cased, or "" when the latest message
	// is outbound or the chat is empty.
	PollLatest(ctx context.Context, phoneNumber string) (string, error)

	// Teardown closes the automation handle. Safe to call twice.
	Teardown() error
}
