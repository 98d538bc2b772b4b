// Package eval runs both agents through a fixed scenario suite, scores the
// replies, and writes per-agent result files plus a markdown comparison
// report.
package eval

// Complexity buckets a scenario by how much the agent has to do.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Scenario is one scripted customer turn with scoring expectations.
type Scenario struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	UserInput            string     `json:"user_input"`
	ExpectedIntent       string     `json:"expected_intent"`
	ExpectedResponseType string     `json:"expected_response_type"`
	Complexity           Complexity `json:"complexity"`
	RequiresContext      bool       `json:"requires_context"`
	EscalationLikely     bool       `json:"escalation_likely"`
}

// BuiltinScenarios returns the standard ten-scenario suite.
func BuiltinScenarios() []Scenario {
	return []Scenario{
		{
			ID:                   "simple_query",
			Name:                 "Business Hours Query",
			UserInput:            "What are your business hours?",
			ExpectedIntent:       "information_request",
			ExpectedResponseType: "factual",
			Complexity:           ComplexitySimple,
		},
		{
			ID:                   "product_info",
			Name:                 "Product Information",
			UserInput:            "Tell me about your premium plan",
			ExpectedIntent:       "product_inquiry",
			ExpectedResponseType: "descriptive",
			Complexity:           ComplexityMedium,
		},
		{
			ID:                   "technical_issue",
			Name:                 "Login Problem",
			UserInput:            "I can't log into my account",
			ExpectedIntent:       "technical_support",
			ExpectedResponseType: "troubleshooting",
			Complexity:           ComplexityMedium,
			RequiresContext:      true,
			EscalationLikely:     true,
		},
		{
			ID:                   "billing_question",
			Name:                 "Billing Issue",
			UserInput:            "Why was I charged twice?",
			ExpectedIntent:       "billing_inquiry",
			ExpectedResponseType: "investigative",
			Complexity:           ComplexityMedium,
			RequiresContext:      true,
			EscalationLikely:     true,
		},
		{
			ID:                   "feature_request",
			Name:                 "Feature Request",
			UserInput:            "Can you add mobile app support?",
			ExpectedIntent:       "feature_request",
			ExpectedResponseType: "acknowledgment",
			Complexity:           ComplexitySimple,
		},
		{
			ID:                   "complaint_handling",
			Name:                 "Service Complaint",
			UserInput:            "Your service was down yesterday",
			ExpectedIntent:       "complaint",
			ExpectedResponseType: "apology_resolution",
			Complexity:           ComplexityComplex,
			RequiresContext:      true,
			EscalationLikely:     true,
		},
		{
			ID:                   "account_management",
			Name:                 "Password Change",
			UserInput:            "How do I change my password?",
			ExpectedIntent:       "account_management",
			ExpectedResponseType: "instructional",
			Complexity:           ComplexitySimple,
		},
		{
			ID:                   "pricing_inquiry",
			Name:                 "Plan Comparison",
			UserInput:            "What's the difference between plans?",
			ExpectedIntent:       "pricing_inquiry",
			ExpectedResponseType: "comparative",
			Complexity:           ComplexityMedium,
		},
		{
			ID:                   "integration_question",
			Name:                 "Slack Integration",
			UserInput:            "Does this work with Slack?",
			ExpectedIntent:       "integration_inquiry",
			ExpectedResponseType: "factual",
			Complexity:           ComplexitySimple,
		},
		{
			ID:                   "escalation_scenario",
			Name:                 "Supervisor Request",
			UserInput:            "I need to speak to a supervisor",
			ExpectedIntent:       "escalation_request",
			ExpectedResponseType: "escalation",
			Complexity:           ComplexityComplex,
			RequiresContext:      true,
			EscalationLikely:     true,
		},
	}
}

// FilterByComplexity keeps scenarios matching the selector. "all" or an
// empty selector keeps everything.
func FilterByComplexity(scenarios []Scenario, selector string) []Scenario {
	if selector == "" || selector == "all" {
		return scenarios
	}
	filtered := make([]Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		if string(s.Complexity) == selector {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
