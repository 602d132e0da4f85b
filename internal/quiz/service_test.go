package quiz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/quizbot/pkg/models"
)

type fakeGenerator struct {
	calls     int
	lastCfg   models.QuizConfiguration
	questions []models.Question
	err       error
}

func (g *fakeGenerator) Generate(_ context.Context, cfg models.QuizConfiguration) ([]models.Question, error) {
	g.calls++
	g.lastCfg = cfg
	if g.err != nil {
		return nil, g.err
	}
	return g.questions, nil
}

type fakeRecorder struct {
	consented bool
	appendErr error
	results   []models.QuizResult
}

func (r *fakeRecorder) HasConsented(context.Context) bool { return r.consented }

func (r *fakeRecorder) Append(_ context.Context, result models.QuizResult) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.results = append(r.results, result)
	return nil
}

func newTestService(g Generator) *Service {
	s := NewService(g)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "session-1" }
	return s
}

func playAll(t *testing.T, session *Session, correct bool) {
	t.Helper()
	for !session.Finished() {
		q, _ := session.Current()
		answer := q.CorrectIndex
		if !correct {
			answer = (q.CorrectIndex + 1) % len(q.Options)
		}
		if _, err := session.SubmitAnswer(answer); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if err := session.Advance(); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
}

func TestStartAndCompleteTrueFalse(t *testing.T) {
	gen := &fakeGenerator{questions: trueFalseQuestions(0, 1, 0)}
	svc := newTestService(gen)
	rec := &fakeRecorder{consented: true}

	cfg := models.QuizConfiguration{Topic: "Solar System", NumQuestions: 3, Mode: models.TrueFalse, Difficulty: models.Easy}
	session, err := svc.Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("Expected exactly one generation call, got %d", gen.calls)
	}
	if session.ID() != "session-1" {
		t.Errorf("Expected session id session-1, got %s", session.ID())
	}

	playAll(t, session, true)

	result, stored, err := svc.Complete(context.Background(), session, rec)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !stored {
		t.Error("Expected result to be reported as stored")
	}
	if result.Score != 3 || result.TotalQuestions != 3 {
		t.Errorf("Expected 3/3, got %d/%d", result.Score, result.TotalQuestions)
	}
	if result.Topic != "Solar System" || result.Difficulty != "Easy" {
		t.Errorf("Unexpected result metadata: %+v", result)
	}
	if result.ID != "session-1" || !result.Date.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected result identity: %+v", result)
	}
	if len(rec.results) != 1 || rec.results[0] != result {
		t.Errorf("Expected result to be recorded once, got %+v", rec.results)
	}
}

func TestStartUsesDefaultTopic(t *testing.T) {
	questions := make([]models.Question, 5)
	for i := range questions {
		questions[i] = models.Question{Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2}
	}
	gen := &fakeGenerator{questions: questions}
	svc := newTestService(gen)

	cfg := models.QuizConfiguration{NumQuestions: 5, NumOptions: 4, Mode: models.MultipleChoice}
	session, err := svc.Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if gen.lastCfg.Topic != models.DefaultTopic {
		t.Errorf("Expected generator to receive %q, got %q", models.DefaultTopic, gen.lastCfg.Topic)
	}
	if session.Config().EffectiveTopic() != models.DefaultTopic {
		t.Errorf("Expected session topic %q, got %q", models.DefaultTopic, session.Config().EffectiveTopic())
	}
	if session.Total() != 5 {
		t.Errorf("Expected 5 questions, got %d", session.Total())
	}
}

func TestStartGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("network unreachable")}
	svc := newTestService(gen)

	session, err := svc.Start(context.Background(), models.QuizConfiguration{Topic: "x", NumQuestions: 2})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if session != nil {
		t.Error("Expected no session when generation fails")
	}
}

func TestStartRejectsShortList(t *testing.T) {
	gen := &fakeGenerator{questions: trueFalseQuestions(0)}
	svc := newTestService(gen)

	cfg := models.QuizConfiguration{Topic: "x", NumQuestions: 2, Mode: models.TrueFalse}
	if session, err := svc.Start(context.Background(), cfg); err == nil || session != nil {
		t.Fatalf("Expected partial question list to be rejected, got %v / %v", session, err)
	}
}

func TestCompleteRequiresFinishedSession(t *testing.T) {
	svc := newTestService(&fakeGenerator{})
	session, _ := NewSession("s", models.QuizConfiguration{Topic: "x"}, trueFalseQuestions(0))
	rec := &fakeRecorder{consented: true}

	if _, _, err := svc.Complete(context.Background(), session, rec); !errors.Is(err, ErrSessionNotFinished) {
		t.Fatalf("Expected ErrSessionNotFinished, got %v", err)
	}

	playAll(t, session, false)
	if _, _, err := svc.Complete(context.Background(), session, rec); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, _, err := svc.Complete(context.Background(), session, rec); !errors.Is(err, ErrResultRecorded) {
		t.Fatalf("Expected ErrResultRecorded, got %v", err)
	}
	if len(rec.results) != 1 {
		t.Errorf("Expected exactly one stored result, got %d", len(rec.results))
	}
	if rec.results[0].Score != 0 {
		t.Errorf("Expected score 0, got %d", rec.results[0].Score)
	}
}

func TestCompleteWithoutConsent(t *testing.T) {
	svc := newTestService(&fakeGenerator{})
	session, _ := NewSession("s", models.QuizConfiguration{Topic: "x"}, trueFalseQuestions(1))
	playAll(t, session, true)

	rec := &fakeRecorder{consented: false}
	result, stored, err := svc.Complete(context.Background(), session, rec)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stored {
		t.Error("Expected result not to be reported as stored")
	}
	if result.Score != 1 {
		t.Errorf("Expected score 1, got %d", result.Score)
	}
	if len(rec.results) != 0 {
		t.Errorf("Expected nothing stored without consent, got %d", len(rec.results))
	}
}

func TestCompleteReportsFailedAppend(t *testing.T) {
	svc := newTestService(&fakeGenerator{})
	session, _ := NewSession("s", models.QuizConfiguration{Topic: "x"}, trueFalseQuestions(1))
	playAll(t, session, true)

	rec := &fakeRecorder{consented: true, appendErr: errors.New("database is locked")}
	result, stored, err := svc.Complete(context.Background(), session, rec)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stored {
		t.Error("Expected a failed append not to be reported as stored")
	}
	if result.Score != 1 {
		t.Errorf("Expected the result to be returned anyway, got %+v", result)
	}
}
