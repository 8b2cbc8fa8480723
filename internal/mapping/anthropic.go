package mapping

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casimage-etl/internal/resilience"
)

// Messenger is the single Anthropic API operation the mapper needs.
type Messenger interface {
	CreateMessage(ctx context.Context, model string, maxTokens int64, prompt string) (string, error)
}

// sdkMessenger implements Messenger with the official SDK.
type sdkMessenger struct {
	client sdk.Client
}

// NewMessenger creates an SDK-backed Messenger.
func NewMessenger(apiKey string) Messenger {
	return &sdkMessenger{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkMessenger) CreateMessage(ctx context.Context, model string, maxTokens int64, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "mapping: create message")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

// Assisted proposes mappings via a Claude model, falling back to the
// offline heuristics whenever the model call or its output fails.
type Assisted struct {
	Messenger Messenger
	Model     string
	Fallback  Proposer
	// Retry controls the API retry policy; the zero value uses
	// DefaultRetryConfig.
	Retry resilience.RetryConfig
}

const promptTemplate = `You are a data engineer. Given the raw field names and sample values
below, produce a STRICT JSON mapping document in this exact shape:

{
  "target_table": "casimage_cases",
  "columns": [
    {"name": "snake_case_name", "type": "string|int|float|date", "source": "RawFieldName", "target": "canonical_field"}
  ],
  "unmapped": ["fields with no sensible target"]
}

Fields:
%s

Respond with ONLY the JSON.`

// Propose asks the model for a mapping; any failure degrades to the
// offline proposal so the run never aborts on mapper trouble.
func (a *Assisted) Propose(ctx context.Context, samples []FieldSample) (*Mapping, error) {
	fallback := a.Fallback
	if fallback == nil {
		fallback = Offline{}
	}

	var fields strings.Builder
	for _, s := range samples {
		sample := s.Sample
		if len(sample) > 120 {
			sample = sample[:120]
		}
		fmt.Fprintf(&fields, "- %s: %q\n", s.Name, sample)
	}

	retry := a.Retry
	if retry.MaxAttempts == 0 {
		retry = resilience.DefaultRetryConfig()
		retry.OnRetry = resilience.RetryLogger("anthropic", "propose_mapping")
	}
	prompt := fmt.Sprintf(promptTemplate, fields.String())
	text, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		return a.Messenger.CreateMessage(ctx, a.Model, 2048, prompt)
	})
	if err != nil {
		zap.L().Warn("assisted mapping failed, using offline heuristics", zap.Error(err))
		return fallback.Propose(ctx, samples)
	}

	m, err := Decode([]byte(text))
	if err != nil {
		zap.L().Warn("assisted mapping returned unusable output, using offline heuristics", zap.Error(err))
		return fallback.Propose(ctx, samples)
	}
	if m.TargetTable == "" {
		m.TargetTable = "casimage_cases"
	}
	return m, nil
}
