package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/quizbot/pkg/models"
)

const threeTrueFalse = `[
 {"question":"The Sun is a star.","options":["True","False"],"correctIndex":0,"explanation":"It is a G-type star."},
 {"question":"Mars has rings.","options":["True","False"],"correctIndex":1,"explanation":"Saturn does."},
 {"question":"Jupiter is a gas giant.","options":["true","false"],"correctIndex":0,"explanation":"Mostly hydrogen."}
]`

// geminiServer answers every request with the given candidate text
func geminiServer(t *testing.T, status int, text string, seen *GeminiRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("Expected API key header, got %q", r.Header.Get("x-goog-api-key"))
		}
		if !strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if seen != nil {
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, seen); err != nil {
				t.Errorf("Failed to decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`))
			return
		}
		resp := map[string]interface{}{
			"candidates": []interface{}{
				map[string]interface{}{
					"content": map[string]interface{}{
						"parts": []interface{}{map[string]interface{}{"text": text}},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestGemini(url string) *Gemini {
	return NewGemini(Options{APIKey: "test-key", Model: "test-model", BaseURL: url})
}

func TestGeminiGenerateTrueFalse(t *testing.T) {
	var seen GeminiRequest
	server := geminiServer(t, http.StatusOK, threeTrueFalse, &seen)
	defer server.Close()

	cfg := models.QuizConfiguration{Topic: "Solar System", NumQuestions: 3, Mode: models.TrueFalse, Difficulty: models.Easy}
	cfg = cfg.Normalize()

	questions, err := newTestGemini(server.URL).Generate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("Expected 3 questions, got %d", len(questions))
	}
	for i, q := range questions {
		if len(q.Options) != 2 || q.Options[0] != "True" || q.Options[1] != "False" {
			t.Errorf("Question %d: expected [True False], got %v", i, q.Options)
		}
	}
	if questions[1].CorrectIndex != 1 {
		t.Errorf("Expected correct index 1, got %d", questions[1].CorrectIndex)
	}

	if len(seen.Contents) != 1 || len(seen.Contents[0].Parts) != 1 {
		t.Fatalf("Expected a single text part, got %+v", seen.Contents)
	}
	if !strings.Contains(seen.Contents[0].Parts[0].Text, `"Solar System"`) {
		t.Errorf("Expected instruction to name the topic, got %q", seen.Contents[0].Parts[0].Text)
	}
	if seen.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("Expected JSON response type, got %q", seen.GenerationConfig.ResponseMimeType)
	}
	if seen.GenerationConfig.Temperature != DefaultTemperature {
		t.Errorf("Expected temperature %v, got %v", DefaultTemperature, seen.GenerationConfig.Temperature)
	}
}

func TestZeroTemperatureIsKept(t *testing.T) {
	cfg := models.QuizConfiguration{Topic: "Solar System", NumQuestions: 3, Mode: models.TrueFalse}
	cfg = cfg.Normalize()
	zero := 0.0

	var seen GeminiRequest
	server := geminiServer(t, http.StatusOK, threeTrueFalse, &seen)
	defer server.Close()

	g := NewGemini(Options{APIKey: "test-key", Model: "test-model", BaseURL: server.URL, Temperature: &zero})
	if _, err := g.Generate(context.Background(), cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if seen.GenerationConfig.Temperature != 0 {
		t.Errorf("Expected temperature 0, got %v", seen.GenerationConfig.Temperature)
	}

	var body map[string]interface{}
	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{"message": map[string]interface{}{"content": threeTrueFalse}},
			},
		})
	}))
	defer openai.Close()

	p, err := New(Options{Provider: ProviderOpenAI, APIKey: "k", BaseURL: openai.URL, Temperature: &zero})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := p.Generate(context.Background(), cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if temp, ok := body["temperature"].(float64); !ok || temp != 0 {
		t.Errorf("Expected temperature 0 in request, got %v", body["temperature"])
	}
}

func TestGeminiGenerateWithDocument(t *testing.T) {
	questions := make([]map[string]interface{}, 5)
	for i := range questions {
		questions[i] = map[string]interface{}{
			"question":     "Which one?",
			"options":      []string{"a", "b", "c", "d"},
			"correctIndex": 2,
			"explanation":  "c is right",
		}
	}
	text, _ := json.Marshal(questions)

	var seen GeminiRequest
	server := geminiServer(t, http.StatusOK, "```json\n"+string(text)+"\n```", &seen)
	defer server.Close()

	doc := &models.Document{Name: "notes.pdf", Data: []byte("%PDF-1.4 fake")}
	cfg := models.QuizConfiguration{Document: doc, NumQuestions: 5, NumOptions: 4, Mode: models.MultipleChoice, Difficulty: models.Medium}
	cfg = cfg.Normalize()

	got, err := newTestGemini(server.URL).Generate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 5 || got[0].CorrectIndex != 2 || len(got[0].Options) != 4 {
		t.Errorf("Unexpected questions: %+v", got)
	}

	parts := seen.Contents[0].Parts
	if len(parts) != 2 || parts[0].InlineData == nil {
		t.Fatalf("Expected document part before the instruction, got %+v", parts)
	}
	if parts[0].InlineData.MimeType != "application/pdf" {
		t.Errorf("Expected application/pdf, got %s", parts[0].InlineData.MimeType)
	}
	if parts[0].InlineData.Data != base64.StdEncoding.EncodeToString(doc.Data) {
		t.Errorf("Expected base64 document data, got %s", parts[0].InlineData.Data)
	}
	if !strings.Contains(parts[1].Text, "ONLY source") {
		t.Errorf("Expected document-only instruction, got %q", parts[1].Text)
	}
}

func TestGeminiGenerateFailures(t *testing.T) {
	cfg := models.QuizConfiguration{Topic: "x", NumQuestions: 3, Mode: models.TrueFalse}
	cfg = cfg.Normalize()

	tests := []struct {
		name   string
		status int
		text   string
	}{
		{"count mismatch", http.StatusOK, `[{"question":"q","options":["True","False"],"correctIndex":0,"explanation":"e"}]`},
		{"missing field", http.StatusOK, strings.Replace(threeTrueFalse, `"correctIndex":1,`, "", 1)},
		{"index out of range", http.StatusOK, strings.Replace(threeTrueFalse, `"correctIndex":1`, `"correctIndex":5`, 1)},
		{"not json", http.StatusOK, "Sure! Here are your questions."},
		{"http error", http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := geminiServer(t, tt.status, tt.text, nil)
			defer server.Close()

			questions, err := newTestGemini(server.URL).Generate(context.Background(), cfg)
			if err == nil {
				t.Fatalf("Expected an error, got %d questions", len(questions))
			}
			if !errors.Is(err, ErrGeneration) {
				t.Errorf("Expected ErrGeneration, got %v", err)
			}
			if questions != nil {
				t.Errorf("Expected no partial list, got %d questions", len(questions))
			}
		})
	}
}

func TestGeminiNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := models.QuizConfiguration{Topic: "x", NumQuestions: 1, Mode: models.TrueFalse}
	cfg = cfg.Normalize()

	_, err := newTestGemini(url).Generate(context.Background(), cfg)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected GenerationError, got %v", err)
	}
	if genErr.Provider != ProviderGemini {
		t.Errorf("Expected provider %s, got %s", ProviderGemini, genErr.Provider)
	}
}

func TestMissingCredential(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer server.Close()

	cfg := models.QuizConfiguration{Topic: "x", NumQuestions: 1, Mode: models.TrueFalse}
	cfg = cfg.Normalize()

	for _, name := range []string{ProviderGemini, ProviderOpenAI} {
		p, err := New(Options{Provider: name, BaseURL: server.URL})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		_, err = p.Generate(context.Background(), cfg)
		if !errors.Is(err, ErrCredentialMissing) || !errors.Is(err, ErrGeneration) {
			t.Errorf("%s: expected ErrCredentialMissing, got %v", name, err)
		}
	}
	if calls != 0 {
		t.Errorf("Expected no requests without a key, got %d", calls)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Options{Provider: "claude-local"}); err == nil {
		t.Error("Expected an error for an unknown provider")
	}
	p, err := New(Options{})
	if err != nil || p.Name() != ProviderGemini {
		t.Errorf("Expected gemini by default, got %v / %v", p, err)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var seen map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Unexpected auth header %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&seen)

		content := `{"questions":` + threeTrueFalse + `}`
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{"message": map[string]interface{}{"content": content}},
			},
		})
	}))
	defer server.Close()

	cfg := models.QuizConfiguration{
		Topic:        "Planets",
		Document:     &models.Document{Name: "planets.pdf", Data: []byte("pdf")},
		NumQuestions: 3,
		Mode:         models.TrueFalse,
	}
	cfg = cfg.Normalize()

	p := NewOpenAI(Options{APIKey: "test-key", BaseURL: server.URL + "/"})
	questions, err := p.Generate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(questions) != 3 || questions[2].Options[0] != "True" {
		t.Errorf("Unexpected questions: %+v", questions)
	}

	if seen["model"] != DefaultOpenAIModel {
		t.Errorf("Expected default model, got %v", seen["model"])
	}
	messages, _ := seen["messages"].([]interface{})
	if len(messages) != 2 {
		t.Fatalf("Expected system and user messages, got %d", len(messages))
	}
	user, _ := messages[1].(map[string]interface{})
	parts, _ := user["content"].([]interface{})
	if len(parts) != 2 {
		t.Fatalf("Expected file and text parts, got %v", user["content"])
	}
	file, _ := parts[0].(map[string]interface{})
	if file["type"] != "file" {
		t.Errorf("Expected file part first, got %v", file["type"])
	}
}

func TestOpenAIBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{"message": map[string]interface{}{"content": threeTrueFalse}},
			},
		})
	}))
	defer server.Close()

	cfg := models.QuizConfiguration{Topic: "x", NumQuestions: 3, Mode: models.TrueFalse}
	cfg = cfg.Normalize()

	questions, err := NewOpenAI(Options{APIKey: "k", BaseURL: server.URL}).Generate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(questions) != 3 {
		t.Errorf("Expected 3 questions, got %d", len(questions))
	}
}

func TestBuildInstruction(t *testing.T) {
	mc := models.QuizConfiguration{Topic: "Rust", NumQuestions: 4, NumOptions: 5, Mode: models.MultipleChoice, Difficulty: models.Hard}
	mc = mc.Normalize()
	text := BuildInstruction(mc)
	for _, want := range []string{"hard difficulty", `"Rust"`, "exactly 5 options", "general knowledge", "exactly 4 questions"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected instruction to contain %q, got %q", want, text)
		}
	}

	tf := models.QuizConfiguration{NumQuestions: 2, Mode: models.TrueFalse}
	tf = tf.Normalize()
	text = BuildInstruction(tf)
	if !strings.Contains(text, `["True", "False"]`) {
		t.Errorf("Expected true/false rule, got %q", text)
	}
	if !strings.Contains(text, models.DefaultTopic) {
		t.Errorf("Expected default topic, got %q", text)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"[]", "[]"},
		{"```json\n[1]\n```", "[1]"},
		{"```\n[2]```", "[2]"},
		{"  [3]  ", "[3]"},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
