package simulation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"agora/internal/llm"
	"agora/internal/logging"
)

// VariantCount is the fixed number of variants every run produces.
const VariantCount = 10

const variantMaxTokens = 1500

var numberedLinePattern = regexp.MustCompile(`^\d+[.)]\s*`)

// VariantParser extracts variant texts from a raw model response. It exists
// as a seam so the parsing heuristic can evolve with the prompt wording.
type VariantParser interface {
	ParseVariants(content string) []string
}

// NumberedListParser selects lines shaped like numbered list items, strips
// the numbering prefix, and discards empties.
type NumberedListParser struct{}

func (NumberedListParser) ParseVariants(content string) []string {
	var variants []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !numberedLinePattern.MatchString(line) {
			continue
		}
		variant := strings.TrimSpace(numberedLinePattern.ReplaceAllString(line, ""))
		if variant != "" {
			variants = append(variants, variant)
		}
	}
	return variants
}

// Generator expands one post idea into VariantCount distinct phrasings via a
// single model call.
type Generator struct {
	client      llm.Client
	parser      VariantParser
	temperature float64
	logger      logging.Logger
}

// NewGenerator builds a Generator using the given model client.
func NewGenerator(client llm.Client, temperature float64, logger logging.Logger) *Generator {
	return &Generator{
		client:      client,
		parser:      NumberedListParser{},
		temperature: temperature,
		logger:      logging.OrNop(logger),
	}
}

// SetParser replaces the response parsing strategy.
func (g *Generator) SetParser(parser VariantParser) {
	if parser != nil {
		g.parser = parser
	}
}

// Generate returns exactly VariantCount variants of the idea, in the order
// the model produced them. Fewer than VariantCount usable variants is a
// GenerationError; excess variants are truncated.
func (g *Generator) Generate(ctx context.Context, idea string) ([]string, error) {
	resp, err := g.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      buildVariantPrompt(idea),
		Temperature: g.temperature,
		MaxTokens:   variantMaxTokens,
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	variants := g.parser.ParseVariants(resp.Content)
	g.logger.Debug("parsed %d variants from model response", len(variants))

	if len(variants) < VariantCount {
		return nil, &GenerationError{Err: fmt.Errorf("parsed %d of %d required variants", len(variants), VariantCount)}
	}

	return variants[:VariantCount], nil
}
