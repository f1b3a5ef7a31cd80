package simulation

import "math"

// Sentiment is the discrete label a simulated persona assigns to a variant.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Persona describes one simulated social-media user. Personas are resolved
// and owned by the caller; the engine reads them only.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PersonaReply is the outcome of simulating one (variant, persona) pair.
type PersonaReply struct {
	PersonaID          string    `json:"personaId"`
	PersonaDescription string    `json:"personaDescription"`
	Reply              string    `json:"reply"`
	Sentiment          Sentiment `json:"sentiment"`
}

// Highlights carries one-sentence theme summaries per sentiment bucket.
type Highlights struct {
	Positive string `json:"positive"`
	Neutral  string `json:"neutral"`
	Negative string `json:"negative"`
}

// VariantResult is one variant's aggregate outcome. Replies are ordered by
// the sampled persona list, never by completion order.
type VariantResult struct {
	Text       string         `json:"text"`
	Score      int            `json:"nps"`
	Highlights Highlights     `json:"highlights"`
	Replies    []PersonaReply `json:"replies"`
}

// SimulationResult is the final output of a run. Variants keep their
// generation order; BestVariantIndex points at the highest score, first
// occurrence winning ties.
type SimulationResult struct {
	BestVariantIndex int             `json:"bestVariantIndex"`
	Variants         []VariantResult `json:"variants"`
}

// ProgressFunc receives (completed, total) reaction counters as individual
// reactions finish. Invocation order follows completion order.
type ProgressFunc func(completed, total int)

// Score computes the NPS-style aggregate for a set of replies:
// round(100*positive/total - 100*negative/total). Empty input scores zero.
func Score(replies []PersonaReply) int {
	total := len(replies)
	if total == 0 {
		return 0
	}

	positive, negative := 0, 0
	for _, reply := range replies {
		switch reply.Sentiment {
		case SentimentPositive:
			positive++
		case SentimentNegative:
			negative++
		}
	}

	promoters := float64(positive) / float64(total) * 100
	detractors := float64(negative) / float64(total) * 100

	// Half values round toward +inf, matching the reporting UI's rounding.
	return int(math.Floor(promoters - detractors + 0.5))
}
