package sendotp

import "time"

type Input struct {
	UserID    string `json:"userId"`
	Purpose   string `json:"purpose,omitempty"`
	Recipient string `json:"recipient"`
	Resend    bool   `json:"resend,omitempty"`
}

type Output struct {
	OTPID     string    `json:"otpId"`
	Sent      bool      `json:"sent"`
	ExpiresAt time.Time `json:"expiresAt"`
}
