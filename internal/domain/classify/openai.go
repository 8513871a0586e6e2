package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/sashabaranov/go-openai"

	"hotdog-server-go/internal/domain/image"
	"hotdog-server-go/internal/platform/config"
	platformerrors "hotdog-server-go/internal/platform/errors"
	"hotdog-server-go/internal/utils"
)

// classificationPrompt fixes the output contract the parser relies on.
const classificationPrompt = "Does this image contain a hotdog? " +
	"Respond with exactly 'Hotdog' or 'Not Hotdog' on the first line, " +
	"then on a new line give a short one-sentence description of the image."

// OpenAIClassifier talks to an OpenAI-compatible chat-completion endpoint
// (OpenRouter by default) with the image inlined as a base64 data URI.
type OpenAIClassifier struct {
	config *config.ClassifierConfig
	client *openai.Client
	logger *utils.Logger
}

// NewOpenAIClassifier constructs the remote classifier client.
func NewOpenAIClassifier(cfg *config.ClassifierConfig, logger *utils.Logger) (*OpenAIClassifier, error) {
	if cfg == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "classify.new", "classifier config is required")
	}
	if cfg.APIKey == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "classify.new", "API key is required")
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClassifier{
		config: cfg,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}, nil
}

// Classify issues one synchronous chat-completion request and parses the
// two-line reply. The request is bounded by the configured timeout.
func (c *OpenAIClassifier) Classify(ctx context.Context, img *image.Validated) (Result, error) {
	if img == nil || len(img.Bytes) == 0 {
		return Result{}, platformerrors.New(platformerrors.KindValidation, "classify", "missing image payload")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	c.logger.DebugTag("CLASSIFY",
		"invoking vision API: model=%s format=%s image_bytes=%d",
		c.config.ModelName, img.Format, len(img.Bytes))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.config.ModelName,
		MaxTokens: c.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: classificationPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: fmt.Sprintf("data:image/%s;base64,%s", img.Format, img.Base64),
						},
					},
				},
			},
		},
	})
	if err != nil {
		return Result{}, c.translateError(err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, platformerrors.New(platformerrors.KindUpstream, "classify", "empty response from vision API")
	}

	answer := resp.Choices[0].Message.Content
	result := ParseAnswer(answer)

	c.logger.InfoTag("CLASSIFY", "verdict=%t answer=%q", result.IsHotdog, answer)
	return result, nil
}

// TestConnection performs a lightweight authenticated model-listing call.
func (c *OpenAIClassifier) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	if _, err := c.client.ListModels(ctx); err != nil {
		c.logger.WarnTag("CLASSIFY", "API connection test failed: %v", err)
		return false
	}
	return true
}

func (c *OpenAIClassifier) timeout() time.Duration {
	if c.config.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.config.TimeoutSeconds) * time.Second
}

// translateError sorts transport failures into the taxonomy the HTTP layer
// maps onto status codes: timeout, connectivity, upstream.
func (c *OpenAIClassifier) translateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return platformerrors.Wrap(platformerrors.KindTimeout, "classify", "vision API request timed out", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := fmt.Sprintf("vision API returned status %d", apiErr.HTTPStatusCode)
		if apiErr.HTTPStatusCode == 401 {
			message = "vision API rejected the credentials (status 401)"
		}
		return platformerrors.Wrap(platformerrors.KindUpstream, "classify", message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return platformerrors.Wrap(platformerrors.KindUpstream, "classify",
			fmt.Sprintf("vision API returned status %d", reqErr.HTTPStatusCode), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return platformerrors.Wrap(platformerrors.KindTimeout, "classify", "vision API request timed out", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return platformerrors.Wrap(platformerrors.KindConnectivity, "classify", "cannot connect to vision API", err)
	}

	return platformerrors.Wrap(platformerrors.KindConnectivity, "classify", "cannot connect to vision API", err)
}
