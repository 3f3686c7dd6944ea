package problem

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
)

const systemPrompt = `You are a pharmaceutical quality specialist. Given the structured
context of a manufacturing deviation, write a concise problem statement
(2-4 sentences) describing what happened, where, and the potential
product impact. State facts only; do not speculate about root cause.`

// Generator produces a problem statement from deviation context.
// The result is best-effort text from an external collaborator; a
// failed call is retryable.
type Generator interface {
	Generate(ctx context.Context, d *domain.Deviation) (string, error)
}

type anthropicGenerator struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewGenerator(apiKey, model string) (Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is empty")
	}
	return &anthropicGenerator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}, nil
}

func (g *anthropicGenerator) Generate(ctx context.Context, d *domain.Deviation) (string, error) {
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildContext(d))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("problem statement generation failed: %w: %v", domain.ErrExternalServiceUnavailable, err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", fmt.Errorf("no text content in response: %w", domain.ErrExternalServiceUnavailable)
}

// Disabled is used when no API key is configured; every call reports
// the collaborator as unavailable.
type Disabled struct{}

func (Disabled) Generate(context.Context, *domain.Deviation) (string, error) {
	return "", fmt.Errorf("problem statement generation is not configured: %w", domain.ErrExternalServiceUnavailable)
}

func buildContext(d *domain.Deviation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deviation: %s\n", d.DeviationID)
	fmt.Fprintf(&b, "Severity: %s\n", d.Severity)
	if d.BatchNumber != "" {
		fmt.Fprintf(&b, "Batch: %s\n", d.BatchNumber)
	}
	if d.ProductName != "" {
		fmt.Fprintf(&b, "Product: %s\n", d.ProductName)
	}
	if d.EquipmentID != "" {
		fmt.Fprintf(&b, "Equipment: %s\n", d.EquipmentID)
	}
	if d.Area != "" {
		fmt.Fprintf(&b, "Area: %s\n", d.Area)
	}
	fmt.Fprintf(&b, "Date discovered: %s\n", d.DateDiscovered.Format("2006-01-02"))
	if d.RPNScore > 0 {
		fmt.Fprintf(&b, "RPN score: %d\n", d.RPNScore)
	}
	return b.String()
}
