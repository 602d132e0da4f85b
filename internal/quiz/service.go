package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/quizbot/pkg/models"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFinished is returned when completing a session that is still running
	ErrSessionNotFinished = errors.New("quiz session is not finished")
	// ErrResultRecorded is returned when a session's result was already created
	ErrResultRecorded = errors.New("quiz result already recorded")
)

// Generator produces validated questions for a configuration
type Generator interface {
	Generate(ctx context.Context, config models.QuizConfiguration) ([]models.Question, error)
}

// ResultRecorder persists finished results for one client
type ResultRecorder interface {
	HasConsented(ctx context.Context) bool
	Append(ctx context.Context, result models.QuizResult) error
}

// Service starts quiz sessions and turns finished ones into results
type Service struct {
	generator Generator
	now       func() time.Time
	newID     func() string
}

// NewService creates a new quiz service
func NewService(generator Generator) *Service {
	return &Service{
		generator: generator,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Start normalizes the configuration, generates the questions with a single
// provider call and returns a session on the first question. When generation
// fails no session is created.
func (s *Service) Start(ctx context.Context, config models.QuizConfiguration) (*Session, error) {
	config = config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	questions, err := s.generator.Generate(ctx, config)
	if err != nil {
		return nil, err
	}
	if len(questions) != config.NumQuestions {
		return nil, fmt.Errorf("expected %d questions, generator returned %d", config.NumQuestions, len(questions))
	}

	return NewSession(s.newID(), config, questions)
}

// Complete creates the result of a finished session, exactly once, and
// appends it to the recorder when the client consented to storage. The
// result is returned even when it is not persisted; stored reports
// whether the recorder accepted it.
func (s *Service) Complete(ctx context.Context, session *Session, recorder ResultRecorder) (result models.QuizResult, stored bool, err error) {
	if !session.Finished() {
		return models.QuizResult{}, false, ErrSessionNotFinished
	}
	if session.recorded {
		return models.QuizResult{}, false, ErrResultRecorded
	}
	session.recorded = true

	config := session.Config()
	result = models.QuizResult{
		ID:             session.ID(),
		Date:           s.now().UTC(),
		Topic:          config.EffectiveTopic(),
		Score:          session.Score(),
		TotalQuestions: session.Total(),
		Difficulty:     string(config.Difficulty),
	}

	if recorder == nil || !recorder.HasConsented(ctx) {
		return result, false, nil
	}
	if err := recorder.Append(ctx, result); err != nil {
		log.Printf("Failed to store quiz result %s: %v", result.ID, err)
		return result, false, nil
	}

	return result, true, nil
}
