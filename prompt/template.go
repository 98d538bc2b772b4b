// Package prompt holds the two prompting strategies under comparison: a
// named structured template rendered deterministically, and plain string
// concatenation with no machinery behind it.
package prompt

import "strings"

// Template is a named structured system prompt. Sections render in a fixed
// order so the same template always produces the same prompt.
type Template struct {
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Task   string   `json:"task"`
	Rules  []string `json:"rules,omitempty"`
	Output string   `json:"output,omitempty"`
}

// Render produces the system prompt.
func (t *Template) Render() string {
	var b strings.Builder
	if t.Role != "" {
		b.WriteString("Role: ")
		b.WriteString(t.Role)
		b.WriteString("\n")
	}
	if t.Task != "" {
		b.WriteString("Task: ")
		b.WriteString(t.Task)
		b.WriteString("\n")
	}
	for _, rule := range t.Rules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}
	if t.Output != "" {
		b.WriteString("\n")
		b.WriteString(t.Output)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// SupportTemplate returns the built-in customer_support template.
func SupportTemplate() *Template {
	return &Template{
		Name: "customer_support",
		Role: "a customer support agent for a software company",
		Task: "answer customer questions concisely and accurately",
		Rules: []string{
			"Always confirm the customer's details before proceeding.",
			"Keep replies short enough to be spoken aloud.",
			"Escalate to a human supervisor when the customer asks for one or the issue cannot be resolved here.",
		},
	}
}

// JoinSections is the vanilla path: plain string concatenation, newline
// separated, skipping empties.
func JoinSections(sections ...string) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(s))
	}
	return strings.Join(parts, "\n")
}
