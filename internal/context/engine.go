// internal/context/engine.go
package context

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/thinkchat/internal/types"
)

// perMessageOverhead approximates the role and framing tokens of one turn.
const perMessageOverhead = 4

// Engine fits stored history into the model's context window.
type Engine struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	reserve   int
}

// New creates a context engine with the specified token budget.
// model is used to select the appropriate tokenizer; models tiktoken does not
// know fall back to cl100k_base, which is close enough for budgeting.
// maxTokens is the model's context window size.
// reserve is the number of tokens to reserve for the model's response.
func New(model string, maxTokens, reserve int) (*Engine, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Engine{
		tokenizer: enc,
		maxTokens: maxTokens,
		reserve:   reserve,
	}, nil
}

// countTokens returns the token count for a string.
func (e *Engine) countTokens(text string) int {
	return len(e.tokenizer.Encode(text, nil, nil))
}

// Fit returns the longest recent tail of history that fits the input budget
// next to the system prompt. The tail always opens with a user turn.
func (e *Engine) Fit(systemPrompt string, history []types.Message) []types.Message {
	if e.maxTokens <= 0 {
		return history
	}
	budget := e.maxTokens - e.reserve - e.countTokens(systemPrompt)

	start := len(history)
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		cost := e.countTokens(history[i].Text) + perMessageOverhead
		if used+cost > budget {
			break
		}
		used += cost
		start = i
	}

	for start < len(history) && history[start].Role != types.RoleUser {
		start++
	}
	return history[start:]
}
