// internal/common/whatsapp/templates.go
package whatsapp

import (
	"fmt"

	"smartlocker-workers/internal/models"
)

// Message bodies sent over the channel. WhatsApp renders *text* as bold.

// OTPMessage formats the one-time-password delivery text.
func OTPMessage(code, purpose string, expiryMinutes int) string {
	return fmt.Sprintf(`*Smart Locker OTP*

Your verification code is: *%s*

This code is valid for %d minutes and is for %s.

Do not share this code with anyone.

Smart Locker Team`, code, expiryMinutes, purpose)
}

// ApprovalRequestMessage formats the parcel approval prompt. The reply
// options must match the classifier's approve/deny keyword sets.
func ApprovalRequestMessage(booking *models.Booking, expiryMinutes int) string {
	recipient := booking.RecipientName
	if recipient == "" {
		recipient = "Customer"
	}

	return fmt.Sprintf(`*Parcel Delivery Approval*

Hello %s,

A parcel is ready for delivery to your locker:

*Details:*
- From: %s
- Item: %s
- Apartment: %s

Please reply with:
*APPROVE* - to accept delivery
*DENY* - to reject delivery

You have %d minutes to respond.

Smart Locker Team`,
		recipient,
		orNA(booking.SenderName),
		orNA(booking.ItemDescription),
		orNA(booking.Apartment),
		expiryMinutes,
	)
}

// ConfirmationMessage formats the locker-assignment notice to the customer.
// The access code is the one the customer enters on the kiosk to collect.
func ConfirmationMessage(booking *models.Booking, lockerNumber, location, accessCode string, ttlHours int) string {
	return fmt.Sprintf(`*Locker Assigned*

Your parcel delivery (booking %s) has been confirmed!

*Locker Details:*
- Location: %s
- Locker: *%s*
- Access Code: *%s*

The code expires in %d hours.

Instructions:
1. Go to the locker location
2. Enter the access code on the kiosk
3. Collect your parcel

Smart Locker Team`, booking.ID, orNA(location), lockerNumber, accessCode, ttlHours)
}

// CancellationMessage formats the post-denial notice to the customer.
func CancellationMessage(booking *models.Booking) string {
	return fmt.Sprintf(`*Delivery Cancelled*

You have declined the delivery for booking %s. The parcel will be returned to the sender.

If this was a mistake, please contact support.

Smart Locker Team`, booking.ID)
}

// ClarificationMessage re-prompts after an unclear reply.
func ClarificationMessage() string {
	return `We could not understand your response.

Please reply with:
*APPROVE* - to accept delivery
*DENY* - to reject delivery

Smart Locker Team`
}

// ExpiredApprovalMessage notifies the customer that the approval window
// closed without a reply.
func ExpiredApprovalMessage(booking *models.Booking) string {
	return fmt.Sprintf(`*Approval Window Expired*

We did not receive a response for booking %s in time. The delivery has been cancelled and the parcel will be returned to the sender.

Please contact support if you still want this delivery.

Smart Locker Team`, booking.ID)
}

// AgentAssignmentMessage formats the locker-assignment SMS/text for the
// delivery agent.
func AgentAssignmentMessage(booking *models.Booking, lockerNumber, location, accessCode string, ttlHours int) string {
	return fmt.Sprintf(`Smart Locker delivery assignment for booking %s:

Locker: %s
Location: %s
Access code: %s

The code expires in %d hours.`, booking.ID, lockerNumber, orNA(location), accessCode, ttlHours)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
