package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"chat-relay/internal/domain"
)

// ErrBadCompletion indica que el proveedor respondio sin un bloque de texto utilizable.
var ErrBadCompletion = errors.New("llm bad completion")

// Completer define la interfaz para generar la siguiente respuesta del asistente.
type Completer interface {
	Complete(ctx context.Context, transcript []domain.Message) (string, error)
}

// Options agrupa los parametros fijos de cada llamada.
type Options struct {
	BaseURL      string
	APIKey       string
	Model        string
	MaxTokens    int64
	SystemPrompt string
	Timeout      time.Duration
}

// AnthropicClient implementa Completer usando la Messages API de Anthropic.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	system    string
	logger    *zap.Logger
}

// NewAnthropicClient construye el cliente. Los reintentos del SDK quedan desactivados:
// cada turno es un unico round trip.
func NewAnthropicClient(opts Options, logger *zap.Logger) *AnthropicClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		system:    opts.SystemPrompt,
		logger:    logger,
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, transcript []domain.Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  toMessageParams(transcript),
	}
	if c.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			c.logger.Warn("llm error status", zap.Int("status", apiErr.StatusCode), zap.Error(err))
			return "", fmt.Errorf("llm http error: status=%d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("do request: %w", err)
	}

	if string(resp.StopReason) == "refusal" {
		return "", fmt.Errorf("%w: refused", ErrBadCompletion)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("%w: empty content", ErrBadCompletion)
	}
	block := resp.Content[0]
	if block.Type != "text" {
		return "", fmt.Errorf("%w: content block type %q", ErrBadCompletion, block.Type)
	}
	// El proveedor rechaza bloques de texto vacios en turnos posteriores.
	if strings.TrimSpace(block.Text) == "" {
		return "", fmt.Errorf("%w: blank text", ErrBadCompletion)
	}
	return block.Text, nil
}

func toMessageParams(transcript []domain.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(transcript))
	for _, m := range transcript {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == domain.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
			continue
		}
		out = append(out, anthropic.NewUserMessage(block))
	}
	return out
}
