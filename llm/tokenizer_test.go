package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEstimator_EncodingSelection(t *testing.T) {
	assert.Equal(t, "tiktoken[o200k_base]", NewEstimator("gpt-4o-mini").Name())
	assert.Equal(t, "tiktoken[cl100k_base]", NewEstimator("gpt-3.5-turbo").Name())
	// prefix match
	assert.Equal(t, "tiktoken[o200k_base]", NewEstimator("gpt-4o-2024-08-06").Name())
	// unknown models default to cl100k_base
	assert.Equal(t, "tiktoken[cl100k_base]", NewEstimator("some-local-model").Name())
}

func TestHeuristicCount(t *testing.T) {
	assert.Equal(t, 1, heuristicCount("hi"))
	// ~4 ASCII chars per token
	assert.Equal(t, 10, heuristicCount("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.Greater(t, heuristicCount("你好世界"), heuristicCount("abcd"))
}

func TestEstimator_CountMessages_Overhead(t *testing.T) {
	e := NewEstimator("gpt-4o-mini")
	empty := e.CountMessages(nil)
	assert.Equal(t, 3, empty)

	one := e.CountMessages([]Message{{Role: RoleUser, Content: "hello"}})
	assert.Greater(t, one, empty)
}
