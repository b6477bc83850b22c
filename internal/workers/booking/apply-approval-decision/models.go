package applyapprovaldecision

// Decisions accepted from the classifier, plus the timer path.
const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
	DecisionUnclear = "unclear"
	DecisionExpired = "expired"
)

type Input struct {
	BookingID         string `json:"bookingId"`
	Decision          string `json:"decision"`
	ApprovalMessageID string `json:"approvalMessageId,omitempty"`
}

type Output struct {
	Applied       bool   `json:"applied"`
	BookingStatus string `json:"bookingStatus"`
	Decision      string `json:"decision"`
}
