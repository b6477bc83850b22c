package verifyotp

type Input struct {
	UserID  string `json:"userId"`
	Purpose string `json:"purpose,omitempty"`
	Code    string `json:"code"`
}

type Output struct {
	Verified          bool `json:"verified"`
	AttemptsRemaining int  `json:"attemptsRemaining"`
}
