package llm

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// modelEncodings maps model names to their tiktoken encoding.
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// Estimator counts tokens with tiktoken when the encoding is available and
// falls back to a character heuristic otherwise. Streamed responses carry no
// usage block, so the pipeline uses this to account completion tokens.
type Estimator struct {
	model    string
	encoding string

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewEstimator creates an estimator for the given model. Unknown models get
// cl100k_base, matching OpenAI's older chat models.
func NewEstimator(model string) *Estimator {
	encoding, ok := modelEncodings[model]
	if !ok {
		for prefix, e := range modelEncodings {
			if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
				encoding, ok = e, true
				break
			}
		}
	}
	if !ok {
		encoding = "cl100k_base"
	}
	return &Estimator{model: model, encoding: encoding}
}

// init lazily loads the tiktoken encoding (may fetch data on first use).
func (e *Estimator) init() error {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(e.encoding)
		if err != nil {
			e.initErr = fmt.Errorf("init tiktoken encoding %s: %w", e.encoding, err)
			return
		}
		e.enc = enc
	})
	return e.initErr
}

// CountTokens returns the token count for text. When tiktoken cannot be
// initialized it degrades to the heuristic count instead of failing.
func (e *Estimator) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if err := e.init(); err != nil {
		return heuristicCount(text)
	}
	return len(e.enc.Encode(text, nil, nil))
}

// CountMessages counts a whole conversation including per-message framing
// overhead (role markers and separators).
func (e *Estimator) CountMessages(messages []Message) int {
	total := 0
	for _, msg := range messages {
		total += 4
		total += e.CountTokens(msg.Content)
		total += e.CountTokens(string(msg.Role))
	}
	total += 3
	return total
}

func (e *Estimator) Name() string {
	return fmt.Sprintf("tiktoken[%s]", e.encoding)
}

// heuristicCount approximates tokens as ~4 ASCII chars each, with CJK
// characters weighted heavier.
func heuristicCount(text string) int {
	totalChars := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}
	estimated := int(float64(cjk)/1.5 + float64(totalChars-cjk)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x3000 && r <= 0x303F) ||
		(r >= 0xFF00 && r <= 0xFFEF)
}
