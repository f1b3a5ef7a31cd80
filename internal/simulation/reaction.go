package simulation

import (
	"context"
	"strings"

	"agora/internal/llm"
)

const (
	reactionMaxTokens = 150

	// fallbackReply replaces a reply that parsed to nothing, so a garbled
	// model response still yields a usable PersonaReply.
	fallbackReply = "Interesting perspective."
)

// SentimentParser splits a raw reaction response into reply text and a
// sentiment label. Implementations must be total: ambiguity is absorbed by
// defaulting, never surfaced as an error.
type SentimentParser interface {
	ParseReaction(content string) (reply string, sentiment Sentiment)
}

// LastLineSentimentParser treats the last non-empty line as the sentiment
// word and everything above it as the reply.
type LastLineSentimentParser struct{}

func (LastLineSentimentParser) ParseReaction(content string) (string, Sentiment) {
	lines := strings.Split(strings.TrimSpace(content), "\n")

	sentiment := SentimentNeutral
	sentimentLine := strings.ToLower(lines[len(lines)-1])
	switch {
	case strings.Contains(sentimentLine, "positive"):
		sentiment = SentimentPositive
	case strings.Contains(sentimentLine, "negative"):
		sentiment = SentimentNegative
	}

	reply := strings.TrimSpace(strings.Join(lines[:len(lines)-1], " "))
	if reply == "" {
		reply = fallbackReply
	}

	return reply, sentiment
}

// ReactionClient wraps one model call that asks a persona to react to a
// variant in character.
type ReactionClient struct {
	client      llm.Client
	parser      SentimentParser
	temperature float64
}

// NewReactionClient builds a ReactionClient using the given model client.
func NewReactionClient(client llm.Client, temperature float64) *ReactionClient {
	return &ReactionClient{
		client:      client,
		parser:      LastLineSentimentParser{},
		temperature: temperature,
	}
}

// SetParser replaces the response parsing strategy.
func (c *ReactionClient) SetParser(parser SentimentParser) {
	if parser != nil {
		c.parser = parser
	}
}

// React asks the persona for a short in-character reply to the variant. Only
// transport-level failures error out, as a ReactionError.
func (c *ReactionClient) React(ctx context.Context, variantText string, persona Persona) (PersonaReply, error) {
	resp, err := c.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      buildReactionPrompt(variantText, persona),
		Temperature: c.temperature,
		MaxTokens:   reactionMaxTokens,
	})
	if err != nil {
		return PersonaReply{}, &ReactionError{PersonaID: persona.ID, Err: err}
	}

	reply, sentiment := c.parser.ParseReaction(resp.Content)

	return PersonaReply{
		PersonaID:          persona.ID,
		PersonaDescription: persona.Name + ": " + persona.Description,
		Reply:              reply,
		Sentiment:          sentiment,
	}, nil
}
