package hackernews

import (
	"context"
	"fmt"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

func (c *Connector) ListPrompts(ctx context.Context) ([]domain.Prompt, error) {
	return []domain.Prompt{
		{
			Name:        "story_digest",
			Description: "Summarize the current top Hacker News stories on a topic",
			Arguments: []domain.PromptArgument{
				{Name: "topic", Description: "Topic to search for", Required: true},
				{Name: "count", Description: "How many stories to cover (default 5)"},
			},
		},
	}, nil
}

func (c *Connector) GetPrompt(ctx context.Context, name string, args map[string]string) (*domain.GetPromptResult, error) {
	if name != "story_digest" {
		return nil, domain.InvalidParamsf("unknown prompt: %s", name)
	}
	topic := args["topic"]
	if topic == "" {
		return nil, domain.InvalidParamsf("topic is required")
	}
	count := args["count"]
	if count == "" {
		count = "5"
	}
	text := fmt.Sprintf(
		"Use the hackernews/search tool to find the %s most relevant recent stories about %q. "+
			"For each story give the title, a one-sentence summary, the points and comment count, "+
			"and a link. Finish with a short overall take on the discussion.",
		count, topic)
	return &domain.GetPromptResult{
		Description: "Digest of Hacker News stories about " + topic,
		Messages: []domain.PromptMessage{
			{Role: "user", Content: domain.Content{Type: "text", Text: text}},
		},
	}, nil
}
