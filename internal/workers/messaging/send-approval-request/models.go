package sendapprovalrequest

import "time"

type Input struct {
	BookingID string `json:"bookingId"`
}

type Output struct {
	ApprovalMessageID string    `json:"approvalMessageId"`
	Sent              bool      `json:"approvalSent"`
	ExpiresAt         time.Time `json:"expiresAt"`
}
