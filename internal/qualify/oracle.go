package qualify

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-qualifier/pkg/glm"
)

const (
	defaultMaxTokens = 8000

	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

// Oracle produces a free-text qualification judgment for a prompt. The two
// implementations differ in provider and in the output contract the prompt
// asks for; the matching parser lives in parse.go.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// markerOracle drives GLM completions with the provider's web_search tool
// enabled. Its responses follow the labelled-marker contract.
type markerOracle struct {
	client glm.Client
	model  string
}

// NewMarkerOracle returns an Oracle backed by GLM chat completions.
func NewMarkerOracle(client glm.Client, model string) Oracle {
	return &markerOracle{client: client, model: model}
}

func (o *markerOracle) Complete(ctx context.Context, prompt string) (string, error) {
	temp := 0.0
	maxTokens := defaultMaxTokens

	resp, err := o.client.ChatCompletion(ctx, glm.ChatCompletionRequest{
		Model:       o.model,
		Messages:    []glm.Message{{Role: "user", Content: prompt}},
		Tools:       []glm.Tool{glm.WebSearchTool()},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", eris.Wrap(err, "qualify: glm completion")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("qualify: glm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// messageCreator is the slice of the Anthropic SDK the structured oracle
// needs, narrowed so tests can substitute a fake.
type messageCreator interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// structuredOracle drives Anthropic messages with the server-side web
// search tool. Its responses follow the strict-JSON contract.
type structuredOracle struct {
	messages messageCreator
	model    string
}

// NewStructuredOracle returns an Oracle backed by the Anthropic API.
// baseURL is optional and exists for tests and proxies.
func NewStructuredOracle(apiKey, baseURL, model string) Oracle {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := sdk.NewClient(opts...)

	if model == "" {
		model = defaultAnthropicModel
	}
	return &structuredOracle{messages: &client.Messages, model: model}
}

func (o *structuredOracle) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := o.messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(o.model),
		MaxTokens:   defaultMaxTokens,
		Temperature: sdk.Float(0),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
		Tools: []sdk.ToolUnionParam{
			{
				OfWebSearchTool20250305: &sdk.WebSearchTool20250305Param{
					MaxUses: sdk.Int(5),
				},
			},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "qualify: anthropic completion")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", eris.New("qualify: anthropic returned no text content")
	}
	return b.String(), nil
}
