package quiz

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/quizbot/pkg/models"
)

var (
	// ErrNoQuestions is returned when a session is built from an empty question list
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrAnswerOutOfRange is returned for a selection outside the current question's options
	ErrAnswerOutOfRange = errors.New("answer index out of range")
	// ErrNotAnswered is returned by Advance before the current question was answered
	ErrNotAnswered = errors.New("current question is not answered yet")
	// ErrSessionFinished is returned by any mutation after the last question
	ErrSessionFinished = errors.New("quiz session already finished")
)

// State is the phase of a quiz session
type State int

const (
	AwaitingAnswer State = iota
	Answered
	Finished
)

func (s State) String() string {
	switch s {
	case AwaitingAnswer:
		return "awaiting_answer"
	case Answered:
		return "answered"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Progress is a read-only snapshot of where a session stands
type Progress struct {
	QuestionIndex  int
	TotalQuestions int
	Score          int
	State          State
}

// Feedback describes the outcome of a submitted answer
type Feedback struct {
	QuestionIndex int
	Selected      int
	CorrectIndex  int
	Correct       bool
	Explanation   string
	// Duplicate is set when the question had already been answered and
	// the submission was ignored
	Duplicate bool
	// Last is set when the answered question is the final one
	Last bool
}

// Session runs a user through a fixed, ordered list of questions.
// It is not safe for concurrent use.
type Session struct {
	id        string
	config    models.QuizConfiguration
	questions []models.Question
	startedAt time.Time

	state    State
	index    int
	selected int
	score    int
	recorded bool
}

// NewSession creates a session positioned on the first question.
// The questions are copied so later changes by the caller do not leak in.
func NewSession(id string, config models.QuizConfiguration, questions []models.Question) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	owned := make([]models.Question, len(questions))
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		owned[i] = q.Clone()
	}

	return &Session{
		id:        id,
		config:    config,
		questions: owned,
		startedAt: time.Now(),
		state:     AwaitingAnswer,
		selected:  -1,
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Config returns the configuration the session was started with
func (s *Session) Config() models.QuizConfiguration { return s.config }

// StartedAt returns when the session was created
func (s *Session) StartedAt() time.Time { return s.startedAt }

// State returns the current phase
func (s *Session) State() State { return s.state }

// Score returns the number of correct answers so far
func (s *Session) Score() int { return s.score }

// Total returns the number of questions in the session
func (s *Session) Total() int { return len(s.questions) }

// Finished reports whether the session reached its terminal state
func (s *Session) Finished() bool { return s.state == Finished }

// Progress returns the current position and score
func (s *Session) Progress() Progress {
	return Progress{
		QuestionIndex:  s.index,
		TotalQuestions: len(s.questions),
		Score:          s.score,
		State:          s.state,
	}
}

// Current returns a copy of the question being asked.
// The boolean is false once the session is finished.
func (s *Session) Current() (models.Question, bool) {
	if s.state == Finished {
		return models.Question{}, false
	}
	return s.questions[s.index].Clone(), true
}

// Selected returns the recorded selection for the current question, or -1
func (s *Session) Selected() int { return s.selected }

// SubmitAnswer records the selection for the current question and scores it.
// A second submission for an already answered question is ignored and the
// first outcome is returned with Duplicate set.
func (s *Session) SubmitAnswer(selected int) (Feedback, error) {
	switch s.state {
	case Finished:
		return Feedback{}, ErrSessionFinished
	case Answered:
		fb := s.feedback()
		fb.Duplicate = true
		return fb, nil
	}

	q := s.questions[s.index]
	if selected < 0 || selected >= len(q.Options) {
		return Feedback{}, fmt.Errorf("%w: %d not in [0, %d)", ErrAnswerOutOfRange, selected, len(q.Options))
	}

	s.selected = selected
	if q.IsCorrect(selected) {
		s.score++
	}
	s.state = Answered

	return s.feedback(), nil
}

// Advance moves past an answered question. After the last question the
// session becomes Finished and accepts no further mutation.
func (s *Session) Advance() error {
	switch s.state {
	case Finished:
		return ErrSessionFinished
	case AwaitingAnswer:
		return ErrNotAnswered
	}

	if s.index+1 >= len(s.questions) {
		s.state = Finished
		return nil
	}

	s.index++
	s.selected = -1
	s.state = AwaitingAnswer
	return nil
}

func (s *Session) feedback() Feedback {
	q := s.questions[s.index]
	return Feedback{
		QuestionIndex: s.index,
		Selected:      s.selected,
		CorrectIndex:  q.CorrectIndex,
		Correct:       q.IsCorrect(s.selected),
		Explanation:   q.Explanation,
		Last:          s.index == len(s.questions)-1,
	}
}
