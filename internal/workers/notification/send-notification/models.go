package sendnotification

type Input struct {
	RecipientID    string            `json:"recipientId"`
	TemplateType   string            `json:"templateType"`
	Channel        string            `json:"channel"`
	RecipientPhone string            `json:"recipientPhone,omitempty"`
	RecipientEmail string            `json:"recipientEmail,omitempty"`
	Priority       string            `json:"priority,omitempty"`
	Variables      map[string]string `json:"variables,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Sent           bool   `json:"sent"`
	Channel        string `json:"channel"`
}
