package openai

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/reasoning"
)

// Config holds the configuration for the OpenAI adapter.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// EmbeddingModel is the model to use for embeddings, e.g., "text-embedding-3-small".
	EmbeddingModel string
	// ChatModel is the model to use for chat completions, e.g., "gpt-4".
	ChatModel string
	// BaseURL is the base URL for the OpenAI API (for testing).
	BaseURL string
}

// OpenAIAdapter implements the reasoning.Engine interface using the OpenAI API.
type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(config Config) (*OpenAIAdapter, error) {
	if config.APIKey == "" {
		return nil, errors.Wrap(errors.ErrValidation, "API key cannot be empty")
	}

	// Set default models if not specified
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = "text-embedding-3-small"
	}
	if config.ChatModel == "" {
		config.ChatModel = "gpt-4"
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	client := openai.NewClientWithConfig(clientConfig)

	return &OpenAIAdapter{
		client:         client,
		embeddingModel: config.EmbeddingModel,
		chatModel:      config.ChatModel,
	}, nil
}

// GenerateEmbeddings generates embeddings for the given texts using the OpenAI API.
func (a *OpenAIAdapter) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	log.Debug("Generating embeddings", "count", len(texts), "model", a.embeddingModel)

	request := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(a.embeddingModel),
	}

	response, err := a.client.CreateEmbeddings(ctx, request)
	if err != nil {
		log.Error("Failed to generate embeddings", "error", err)
		return nil, errors.Classify(errors.ErrProvider, err, "embedding request failed")
	}

	embeddings := make([][]float32, len(response.Data))
	for i, data := range response.Data {
		embeddings[i] = data.Embedding
	}

	log.Debug("Successfully generated embeddings",
		"count", len(embeddings),
		"dimension", len(embeddings[0]),
		"model", a.embeddingModel)

	return embeddings, nil
}

// ProcessMessages generates a response to the given messages using the OpenAI API.
func (a *OpenAIAdapter) ProcessMessages(ctx context.Context, messages []reasoning.Message, opts ...reasoning.Option) (string, error) {
	options := reasoning.DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	// Override model if specified in options
	model := a.chatModel
	if options.Model != "" {
		model = options.Model
	}

	log.Debug("Processing chat request", "model", model, "messages", len(messages))

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	request := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
	}

	response, err := a.client.CreateChatCompletion(ctx, request)
	if err != nil {
		log.Error("Failed to generate chat completion", "error", err)
		return "", errors.Classify(errors.ErrProvider, err, "chat completion failed")
	}

	if len(response.Choices) == 0 {
		return "", errors.Wrap(errors.ErrProvider, "no response choices returned")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)

	log.Debug("Successfully generated response",
		"tokens", response.Usage.TotalTokens,
		"model", model)

	return content, nil
}

// Process implements the reasoning.Engine interface by adapting to the
// messages format.
func (a *OpenAIAdapter) Process(ctx context.Context, prompt string, opts ...reasoning.Option) (string, error) {
	messages := []reasoning.Message{
		{Role: "user", Content: prompt},
	}

	return a.ProcessMessages(ctx, messages, opts...)
}
