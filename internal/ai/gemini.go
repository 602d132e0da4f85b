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

// Gemini defaults
const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.5-flash"
)

// Gemini generates questions with the Gemini generateContent API
type Gemini struct {
	apiKey      string
	apiURL      string
	model       string
	temperature float64
	client      *http.Client
}

// NewGemini creates a new Gemini provider. A missing key is reported per request.
func NewGemini(opts Options) *Gemini {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Gemini{
		apiKey:      opts.APIKey,
		apiURL:      strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: opts.temperature(),
		client:      client,
	}
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string                 `json:"responseMimeType"`
	ResponseSchema   map[string]interface{} `json:"responseSchema"`
	Temperature      float64                `json:"temperature"`
}

// GeminiRequest is the body of a generateContent call
type GeminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// GeminiResponse is the subset of the generateContent response we read
type GeminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Name returns the provider name
func (g *Gemini) Name() string { return ProviderGemini }

// Generate implements Provider
func (g *Gemini) Generate(ctx context.Context, config models.QuizConfiguration) ([]models.Question, error) {
	if g.apiKey == "" {
		return nil, &GenerationError{Provider: g.Name(), Err: ErrCredentialMissing}
	}

	questions, err := g.generate(ctx, config)
	if err != nil {
		return nil, &GenerationError{Provider: g.Name(), Err: err}
	}
	return questions, nil
}

// buildRequest puts the document first so the instruction can refer to it
func (g *Gemini) buildRequest(config models.QuizConfiguration) GeminiRequest {
	parts := make([]geminiPart, 0, 2)
	if config.HasDocument() {
		mediaType := config.Document.MediaType
		if mediaType == "" {
			mediaType = models.DefaultMediaType
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: mediaType,
			Data:     base64.StdEncoding.EncodeToString(config.Document.Data),
		}})
	}
	parts = append(parts, geminiPart{Text: BuildInstruction(config)})

	return GeminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   QuestionListSchema(),
			Temperature:      g.temperature,
		},
	}
}

func (g *Gemini) generate(ctx context.Context, config models.QuizConfiguration) ([]models.Question, error) {
	requestData, err := json.Marshal(g.buildRequest(config))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.apiURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var response GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response (HTTP %d): %v", resp.StatusCode, err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("API error %d %s: %s", response.Error.Code, response.Error.Status, response.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked: %s", response.PromptFeedback.BlockReason)
	}
	if len(response.Candidates) == 0 {
		return nil, fmt.Errorf("no response candidates returned")
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	questions, err := decodeQuestions(text.String())
	if err != nil {
		return nil, err
	}
	return validateQuestions(config, questions)
}
