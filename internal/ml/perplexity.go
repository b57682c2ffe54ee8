package ml

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	backendPerplexity     = "perplexity"
	perplexityTemperature = 0.5
	insightPrompt         = "Below is a collection of story summaries. Analyze them and provide a concise overview " +
		"of common themes, patterns, and insights that emerge across the stories. " +
		"Limit your response to 3-5 bullet points, each under 20 words.\n\n"
	summaryPrompt = "Summarize the following story in at most three sentences.\n\n"
	chatPrompt    = "You are a helpful assistant. Use the following project stories to answer questions about the project:\n\n"
	roleSystem    = "system"
	roleUser      = "user"
)

// PerplexitySummarizer uses the chat-completions API to write the
// collective insight for a project and to answer questions about it.
type PerplexitySummarizer struct {
	api   apiClient
	model string
}

func NewPerplexitySummarizer(endpoint, apiKey, model string, timeout time.Duration) *PerplexitySummarizer {
	return &PerplexitySummarizer{
		api:   newAPIClient(backendPerplexity, endpoint, bearerAuthScheme, apiKey, timeout),
		model: model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *PerplexitySummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf(errNoTextToProcess, ErrBadInput)
	}
	return p.complete(ctx, summaryPrompt+text)
}

func (p *PerplexitySummarizer) SummarizeMany(ctx context.Context, texts []string) (string, error) {
	var b strings.Builder
	n := 0
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		n++
		if n > 1 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Story %d: %s", n, t)
	}
	if n == 0 {
		return "", fmt.Errorf(errNoTextToProcess, ErrBadInput)
	}
	return p.complete(ctx, insightPrompt+b.String())
}

// Chat answers message with the project's stories as the system prompt.
// An empty background is allowed.
func (p *PerplexitySummarizer) Chat(ctx context.Context, background, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf(errNoMessage, ErrBadInput)
	}
	return p.send(ctx, []chatMessage{
		{Role: roleSystem, Content: chatPrompt + background},
		{Role: roleUser, Content: message},
	})
}

func (p *PerplexitySummarizer) complete(ctx context.Context, prompt string) (string, error) {
	return p.send(ctx, []chatMessage{{Role: roleUser, Content: prompt}})
}

func (p *PerplexitySummarizer) send(ctx context.Context, messages []chatMessage) (string, error) {
	req := chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: perplexityTemperature,
	}

	var resp chatResponse
	if err := p.api.postJSON(ctx, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf(errBackendEmptyFmt, ErrBackendUnavailable, backendPerplexity)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
