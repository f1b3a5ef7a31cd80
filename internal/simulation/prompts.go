package simulation

import (
	"fmt"
	"strings"
)

// Prompt builders are plain functions so the wording can evolve without
// touching the components that issue the calls.

func buildVariantPrompt(idea string) string {
	return fmt.Sprintf(`You are a social media expert. Given a post idea, create %d distinct variants that could maximize engagement.

Each variant should:
- Be concise and engaging
- Have a different tone, hook, or call-to-action
- Maintain the core message
- Be between 150-280 characters when possible

Post idea: %q

Return exactly %d variants, numbered 1-%d, each on a new line.`, VariantCount, idea, VariantCount, VariantCount)
}

func buildReactionPrompt(variantText string, persona Persona) string {
	return fmt.Sprintf(`You are simulating a social media user with this profile:
%q

Someone posts this:
%q

As this persona, write a brief reply (1-3 sentences) that this person would realistically post. Be authentic to the persona's characteristics and perspective.

After your reply, on a new line, rate your sentiment as exactly one word: positive, neutral, or negative.`,
		persona.Name+": "+persona.Description, variantText)
}

func buildHighlightsPrompt(positive, neutral, negative []PersonaReply) string {
	return fmt.Sprintf(`Analyze these social media replies and provide a brief summary (one sentence each) highlighting the key themes:

POSITIVE REPLIES:
%s

NEUTRAL REPLIES:
%s

NEGATIVE REPLIES:
%s

Provide three one-sentence summaries in this exact format:
POSITIVE: [summary]
NEUTRAL: [summary]
NEGATIVE: [summary]`,
		bulletList(positive), bulletList(neutral), bulletList(negative))
}

func bulletList(replies []PersonaReply) string {
	if len(replies) == 0 {
		return "None"
	}
	lines := make([]string, 0, len(replies))
	for _, reply := range replies {
		lines = append(lines, "- "+reply.Reply)
	}
	return strings.Join(lines, "\n")
}
