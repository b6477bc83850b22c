package classifyresponse

// Decisions a reply can classify to.
const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
	DecisionUnclear = "unclear"
)

// Classification methods.
const (
	MethodAI      = "ai"
	MethodKeyword = "keyword"
)

type Input struct {
	ApprovalMessageID string `json:"approvalMessageId"`
	RawResponse       string `json:"rawResponse"`
}

type Output struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Sentiment  string  `json:"sentiment"`
	Method     string  `json:"method"`
}
