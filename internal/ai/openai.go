package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/quizbot/pkg/models"
)

// OpenAI defaults
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAI generates questions with an OpenAI-compatible chat completions API
type OpenAI struct {
	apiKey      string
	apiURL      string
	model       string
	temperature float64
	client      *http.Client
}

// NewOpenAI creates a new OpenAI-compatible provider
func NewOpenAI(opts Options) *OpenAI {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAI{
		apiKey:      opts.APIKey,
		apiURL:      strings.TrimRight(baseURL, "/") + "/chat/completions",
		model:       model,
		temperature: opts.temperature(),
		client:      client,
	}
}

// Message represents a message in the chat conversation.
// Content is either a string or a list of content parts.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *filePart `json:"file,omitempty"`
}

type filePart struct {
	Filename string `json:"filename,omitempty"`
	FileData string `json:"file_data"`
}

type jsonSchemaFormat struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

// ChatRequest represents a request to the chat completions API
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// ChatResponse represents a response from the chat completions API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Name returns the provider name
func (c *OpenAI) Name() string { return ProviderOpenAI }

// Generate implements Provider
func (c *OpenAI) Generate(ctx context.Context, config models.QuizConfiguration) ([]models.Question, error) {
	if c.apiKey == "" {
		return nil, &GenerationError{Provider: c.Name(), Err: ErrCredentialMissing}
	}

	questions, err := c.generate(ctx, config)
	if err != nil {
		return nil, &GenerationError{Provider: c.Name(), Err: err}
	}
	return questions, nil
}

// buildRequest wraps the question array in an object because structured
// outputs require an object at the top level
func (c *OpenAI) buildRequest(config models.QuizConfiguration) ChatRequest {
	instruction := BuildInstruction(config)

	var userContent interface{} = instruction
	if config.HasDocument() {
		mediaType := config.Document.MediaType
		if mediaType == "" {
			mediaType = models.DefaultMediaType
		}
		userContent = []contentPart{
			{
				Type: "file",
				File: &filePart{
					Filename: config.Document.Name,
					FileData: "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(config.Document.Data),
				},
			},
			{Type: "text", Text: instruction},
		}
	}

	return ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: "You write accurate quiz questions and answer only with JSON matching the requested schema."},
			{Role: "user", Content: userContent},
		},
		Temperature: c.temperature,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   "quiz",
				Strict: true,
				Schema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"questions": map[string]interface{}{
							"type":  "array",
							"items": questionSchema(false),
						},
					},
					"required":             []string{"questions"},
					"additionalProperties": false,
				},
			},
		},
	}
}

func (c *OpenAI) generate(ctx context.Context, config models.QuizConfiguration) ([]models.Question, error) {
	requestData, err := json.Marshal(c.buildRequest(config))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(requestData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response (HTTP %d): %v", resp.StatusCode, err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s", response.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	content := stripCodeFence(response.Choices[0].Message.Content)
	if strings.HasPrefix(content, "{") {
		var wrapped struct {
			Questions json.RawMessage `json:"questions"`
		}
		if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode questions: %v", err)
		}
		content = string(wrapped.Questions)
	}

	questions, err := decodeQuestions(content)
	if err != nil {
		return nil, err
	}
	return validateQuestions(config, questions)
}
