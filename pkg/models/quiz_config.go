package models

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the kind of questions a quiz is made of
type Mode string

const (
	// MultipleChoice questions carry the requested number of options
	MultipleChoice Mode = "multiple_choice"
	// TrueFalse questions are statements answered with "True" or "False"
	TrueFalse Mode = "true_false"
)

// Difficulty of the generated questions
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Limits and defaults for a quiz configuration
const (
	MinQuestions     = 1
	MaxQuestions     = 20
	DefaultQuestions = 10

	MinOptions     = 2
	MaxOptions     = 5
	DefaultOptions = 3

	DefaultTopic     = "General Knowledge"
	DefaultMediaType = "application/pdf"
)

// TrueFalseOptions are the fixed options of every true/false question, in order
var TrueFalseOptions = []string{"True", "False"}

// ErrInvalidConfiguration is returned for configurations outside the allowed bounds
var ErrInvalidConfiguration = errors.New("invalid quiz configuration")

// Document is a source file the questions must be based on
type Document struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"-"`
}

// QuizConfiguration describes the quiz a user asked for
type QuizConfiguration struct {
	Topic        string     `json:"topic"`
	Document     *Document  `json:"document,omitempty"`
	NumQuestions int        `json:"num_questions"`
	NumOptions   int        `json:"num_options"` // Ignored in TrueFalse mode
	Mode         Mode       `json:"mode"`
	Difficulty   Difficulty `json:"difficulty"`
}

// HasDocument reports whether a non-empty source document is attached
func (c QuizConfiguration) HasDocument() bool {
	return c.Document != nil && len(c.Document.Data) > 0
}

// EffectiveTopic returns the topic used for generation and history.
// An empty topic becomes the document name when a document is attached,
// and DefaultTopic otherwise.
func (c QuizConfiguration) EffectiveTopic() string {
	topic := strings.TrimSpace(c.Topic)
	if topic != "" {
		return topic
	}
	if c.HasDocument() {
		if name := DocumentTopic(c.Document.Name); name != "" {
			return name
		}
	}
	return DefaultTopic
}

// OptionCount returns how many options every question must have
func (c QuizConfiguration) OptionCount() int {
	if c.Mode == TrueFalse {
		return len(TrueFalseOptions)
	}
	return c.NumOptions
}

// Normalize clamps the configuration into its allowed bounds and fills defaults.
// A normalized configuration always passes Validate.
func (c QuizConfiguration) Normalize() QuizConfiguration {
	c.Topic = c.EffectiveTopic()

	if c.NumQuestions == 0 {
		c.NumQuestions = DefaultQuestions
	}
	c.NumQuestions = clamp(c.NumQuestions, MinQuestions, MaxQuestions)

	if c.Mode != TrueFalse {
		c.Mode = MultipleChoice
	}
	if c.Mode == TrueFalse {
		c.NumOptions = len(TrueFalseOptions)
	} else {
		if c.NumOptions == 0 {
			c.NumOptions = DefaultOptions
		}
		c.NumOptions = clamp(c.NumOptions, MinOptions, MaxOptions)
	}

	switch c.Difficulty {
	case Easy, Medium, Hard:
	default:
		c.Difficulty = Medium
	}

	if c.Document != nil {
		if len(c.Document.Data) == 0 {
			c.Document = nil
		} else if c.Document.MediaType == "" {
			doc := *c.Document
			doc.MediaType = DefaultMediaType
			c.Document = &doc
		}
	}

	return c
}

// Validate checks the configuration without modifying it
func (c QuizConfiguration) Validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("%w: topic is empty", ErrInvalidConfiguration)
	}
	if c.NumQuestions < MinQuestions || c.NumQuestions > MaxQuestions {
		return fmt.Errorf("%w: question count %d not in [%d, %d]",
			ErrInvalidConfiguration, c.NumQuestions, MinQuestions, MaxQuestions)
	}
	switch c.Mode {
	case TrueFalse:
	case MultipleChoice:
		if c.NumOptions < MinOptions || c.NumOptions > MaxOptions {
			return fmt.Errorf("%w: option count %d not in [%d, %d]",
				ErrInvalidConfiguration, c.NumOptions, MinOptions, MaxOptions)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfiguration, c.Mode)
	}
	switch c.Difficulty {
	case Easy, Medium, Hard:
	default:
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidConfiguration, c.Difficulty)
	}
	return nil
}

// DocumentTopic derives a topic from an uploaded file name
func DocumentTopic(fileName string) string {
	name := strings.TrimSpace(fileName)
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}
	return strings.TrimSpace(name)
}

// ParseDifficulty maps user input to a Difficulty, case-insensitively
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, true
	case "medium":
		return Medium, true
	case "hard":
		return Hard, true
	}
	return "", false
}

// ParseMode maps user input to a Mode
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(MultipleChoice), "mc", "multiple":
		return MultipleChoice, true
	case string(TrueFalse), "tf", "truefalse":
		return TrueFalse, true
	}
	return "", false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
