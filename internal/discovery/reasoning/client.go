// internal/discovery/reasoning/client.go
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/models"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const Name = "reasoning"

var (
	ErrReasoningTimeout = errors.New("REASONING_TIMEOUT")
	ErrReasoningFailed  = errors.New("REASONING_FAILED")
)

// Generator is the primary reasoning collaborator of the orchestrator.
type Generator interface {
	Generate(ctx context.Context, req Request, onChunk ChunkFunc) (*Response, error)
}

type Client struct {
	config *Config
	client openai.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger, opts ...option.RequestOption) *Client {
	base := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(config.APIKey)),
		option.WithMaxRetries(config.MaxRetries),
	}
	if trimmed := strings.TrimRight(config.BaseURL, "/"); trimmed != "" {
		base = append(base, option.WithBaseURL(trimmed))
	}
	if config.Timeout > 0 {
		base = append(base, option.WithRequestTimeout(config.Timeout))
	}

	return &Client{
		config: config,
		client: openai.NewClient(append(base, opts...)...),
		logger: log.With(map[string]interface{}{
			"component": Name,
		}),
	}
}

// Generate sends the system prompt, bounded history and query to the model.
// A nil onChunk or a non-streaming request returns the whole completion at once.
func (c *Client) Generate(ctx context.Context, req Request, onChunk ChunkFunc) (*Response, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	model := c.config.Model
	if req.Stream && c.config.StreamModel != "" {
		model = c.config.StreamModel
	}
	params := c.buildParams(model, req)

	var (
		resp *Response
		err  error
	)
	if req.Stream && onChunk != nil {
		resp, err = c.stream(ctx, params, onChunk)
	} else {
		resp, err = c.complete(ctx, params)
	}
	if err != nil {
		c.logger.Warn("reasoning call failed", map[string]interface{}{
			"model": model,
			"error": err,
		})
		return nil, err
	}

	resp.Model = model
	c.logger.Debug("reasoning call completed", map[string]interface{}{
		"model":    model,
		"chars":    len(resp.Text),
		"streamed": resp.Streamed,
	})
	return resp, nil
}

func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (*Response, error) {
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrReasoningFailed)
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrReasoningFailed)
	}
	return &Response{Text: text}, nil
}

func (c *Client) stream(ctx context.Context, params openai.ChatCompletionNewParams, onChunk ChunkFunc) (*Response, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var text strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		text.WriteString(delta)
		if err := onChunk(delta); err != nil {
			return nil, fmt.Errorf("%w: deliver chunk: %v", ErrReasoningFailed, err)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, classify(ctx, err)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("%w: empty stream", ErrReasoningFailed)
	}
	return &Response{Text: text.String(), Streamed: true}, nil
}

func (c *Client) buildParams(model string, req Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	for _, turn := range req.History {
		switch turn.Role {
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.Query))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if c.config.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.config.MaxTokens))
	}
	if req.Stream && c.config.Temperature > 0 {
		params.Temperature = openai.Float(c.config.Temperature)
	}
	return params
}

// classify maps SDK and transport failures onto the package sentinels.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrReasoningTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrReasoningTimeout, err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d", ErrReasoningFailed, apiErr.StatusCode)
	}
	return fmt.Errorf("%w: %v", ErrReasoningFailed, err)
}
