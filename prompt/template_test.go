package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplate_Render(t *testing.T) {
	tpl := &Template{
		Name:  "demo",
		Role:  "a helper",
		Task:  "help",
		Rules: []string{"be brief", "be kind"},
	}
	rendered := tpl.Render()
	assert.Equal(t, "Role: a helper\nTask: help\n- be brief\n- be kind", rendered)

	// deterministic
	assert.Equal(t, rendered, tpl.Render())
}

func TestSupportTemplate(t *testing.T) {
	tpl := SupportTemplate()
	assert.Equal(t, "customer_support", tpl.Name)
	rendered := tpl.Render()
	assert.Contains(t, rendered, "customer support agent")
	assert.Contains(t, rendered, "confirm the customer's details")
	assert.Contains(t, strings.ToLower(rendered), "escalate")
}

func TestJoinSections(t *testing.T) {
	assert.Equal(t, "a\nb", JoinSections("a", "", "  ", "b"))
	assert.Equal(t, "", JoinSections())
}
