// internal/workers/messaging/scan-approval-responses/models.go
package scanapprovalresponses

// Output reports one scan pass back to the workflow.
type Output struct {
	Scanned   int `json:"scanned"`
	Responded int `json:"responded"`
	Published int `json:"published"`
}
