package simulation

import (
	"context"
	"strings"

	"agora/internal/llm"
)

const (
	highlightsMaxTokens   = 300
	highlightsTemperature = 0.5
)

// Per-bucket defaults used when the model response misses a label. A partial
// parse failure never fails the call.
const (
	defaultPositiveHighlight = "Users expressed positive sentiment."
	defaultNeutralHighlight  = "Some users had neutral reactions."
	defaultNegativeHighlight = "Some users had concerns."
)

// Summarizer condenses a variant's replies into one-sentence theme summaries
// per sentiment bucket via a single model call.
type Summarizer struct {
	client llm.Client
}

// NewSummarizer builds a Summarizer using the given model client.
func NewSummarizer(client llm.Client) *Summarizer {
	return &Summarizer{client: client}
}

// Summarize partitions replies by sentiment and asks the model for one
// summary per bucket. Transport failures surface as SummarizationError;
// missing labels fall back to bucket defaults.
func (s *Summarizer) Summarize(ctx context.Context, replies []PersonaReply) (Highlights, error) {
	var positive, neutral, negative []PersonaReply
	for _, reply := range replies {
		switch reply.Sentiment {
		case SentimentPositive:
			positive = append(positive, reply)
		case SentimentNegative:
			negative = append(negative, reply)
		default:
			neutral = append(neutral, reply)
		}
	}

	resp, err := s.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      buildHighlightsPrompt(positive, neutral, negative),
		Temperature: highlightsTemperature,
		MaxTokens:   highlightsMaxTokens,
	})
	if err != nil {
		return Highlights{}, &SummarizationError{Err: err}
	}

	return parseHighlights(resp.Content), nil
}

func parseHighlights(content string) Highlights {
	highlights := Highlights{
		Positive: defaultPositiveHighlight,
		Neutral:  defaultNeutralHighlight,
		Negative: defaultNegativeHighlight,
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "POSITIVE:"):
			if text := strings.TrimSpace(strings.TrimPrefix(line, "POSITIVE:")); text != "" {
				highlights.Positive = text
			}
		case strings.HasPrefix(line, "NEUTRAL:"):
			if text := strings.TrimSpace(strings.TrimPrefix(line, "NEUTRAL:")); text != "" {
				highlights.Neutral = text
			}
		case strings.HasPrefix(line, "NEGATIVE:"):
			if text := strings.TrimSpace(strings.TrimPrefix(line, "NEGATIVE:")); text != "" {
				highlights.Negative = text
			}
		}
	}

	return highlights
}
