package sendmessage

type Input struct {
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	Kind      string `json:"kind,omitempty"`
}

type Output struct {
	MessageID string `json:"messageId"`
	Sent      bool   `json:"sent"`
}
