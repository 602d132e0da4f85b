package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/quizbot/pkg/models"
)

// Provider names accepted by New
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultTemperature keeps generation varied without drifting off topic
const DefaultTemperature = 0.7

var (
	// ErrGeneration matches every failure to produce a question list
	ErrGeneration = errors.New("question generation failed")
	// ErrCredentialMissing is returned when no API key is configured
	ErrCredentialMissing = errors.New("generation credential is not configured")
)

// GenerationError wraps the cause of a failed generation request
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Provider, ErrGeneration, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrGeneration) hold for every GenerationError
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// Provider turns a quiz configuration into a validated list of questions.
// Exactly one remote request is made per call and there are no retries.
type Provider interface {
	Name() string
	Generate(ctx context.Context, config models.QuizConfiguration) ([]models.Question, error)
}

// Options configures a provider. A nil Temperature means DefaultTemperature.
type Options struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float64
	HTTPClient  *http.Client
}

func (o Options) temperature() float64 {
	if o.Temperature == nil {
		return DefaultTemperature
	}
	return *o.Temperature
}

// New creates the provider named in opts
func New(opts Options) (Provider, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderGemini:
		return NewGemini(opts), nil
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	}
	return nil, fmt.Errorf("unknown question provider %q", opts.Provider)
}

// wireQuestion mirrors the response schema; pointers detect missing fields
type wireQuestion struct {
	Question     *string  `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correctIndex"`
	Explanation  *string  `json:"explanation"`
}

// decodeQuestions parses a JSON array of questions, type-checking every field
func decodeQuestions(text string) ([]models.Question, error) {
	text = stripCodeFence(text)
	if text == "" {
		return nil, fmt.Errorf("empty response text")
	}

	var wire []wireQuestion
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %v", err)
	}

	questions := make([]models.Question, 0, len(wire))
	for i, w := range wire {
		if w.Question == nil || w.Options == nil || w.CorrectIndex == nil || w.Explanation == nil {
			return nil, fmt.Errorf("question %d is missing required fields", i+1)
		}
		questions = append(questions, models.Question{
			Question:     *w.Question,
			Options:      w.Options,
			CorrectIndex: *w.CorrectIndex,
			Explanation:  *w.Explanation,
		})
	}
	return questions, nil
}

// validateQuestions enforces the all-or-nothing contract: the exact count,
// valid indexes, the option count of the mode, and the fixed true/false labels.
func validateQuestions(config models.QuizConfiguration, questions []models.Question) ([]models.Question, error) {
	if len(questions) != config.NumQuestions {
		return nil, fmt.Errorf("expected %d questions, got %d", config.NumQuestions, len(questions))
	}

	want := config.OptionCount()
	for i := range questions {
		q := &questions[i]
		if len(q.Options) != want {
			return nil, fmt.Errorf("question %d has %d options, expected %d", i+1, len(q.Options), want)
		}
		if config.Mode == models.TrueFalse {
			q.Options = append([]string(nil), models.TrueFalseOptions...)
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %v", i+1, err)
		}
	}
	return questions, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
