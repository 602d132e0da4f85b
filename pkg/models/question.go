package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuestion is returned when a question breaks its shape invariants
var ErrInvalidQuestion = errors.New("invalid question")

// Question is a single generated quiz question
type Question struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// Validate checks that the question can be asked and scored
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidQuestion)
	}
	if len(q.Options) == 0 {
		return fmt.Errorf("%w: no options", ErrInvalidQuestion)
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: correct index %d out of range for %d options",
			ErrInvalidQuestion, q.CorrectIndex, len(q.Options))
	}
	return nil
}

// IsCorrect reports whether the given option index is the right answer
func (q Question) IsCorrect(index int) bool {
	return index == q.CorrectIndex
}

// CorrectOption returns the text of the correct option
func (q Question) CorrectOption() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectIndex]
}

// Clone returns a copy that shares no memory with q
func (q Question) Clone() Question {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	q.Options = options
	return q
}
