// Package agent implements the two customer-support agents under comparison.
// Both run the same request shape and reply contract; they differ only in how
// the prompt is built and how the model's reply is turned into a SupportReply.
package agent

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Urgency levels accepted on a support request.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// SupportRequest is one customer turn entering an agent.
type SupportRequest struct {
	Query      string `json:"query" validate:"required"`
	CustomerID string `json:"customer_id,omitempty"`
	Urgency    string `json:"urgency,omitempty" validate:"omitempty,oneof=low medium high"`
	Category   string `json:"category,omitempty"`
	// History carries prior turns as "speaker: text" lines for context
	// retention across a conversation.
	History []string `json:"history,omitempty"`
}

// SupportReply is the contract both agents must produce.
type SupportReply struct {
	Response  string   `json:"response" jsonschema:"required,description=The spoken answer for the customer"`
	Escalate  bool     `json:"escalate" jsonschema:"description=True when a human supervisor should take over"`
	NextSteps []string `json:"next_steps,omitempty" jsonschema:"description=Concrete follow-up actions for the customer"`
}

// Agent answers support requests. Kind distinguishes the prompting strategy
// in results and metrics.
type Agent interface {
	Respond(ctx context.Context, req *SupportRequest) (*SupportReply, error)
	Kind() string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request against its field constraints.
func (r *SupportRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid support request: %w", err)
	}
	return nil
}
