package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/quizbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// wizardStep is the question the configuration wizard is waiting on
type wizardStep int

const (
	stepTopic wizardStep = iota
	stepMode
	stepDifficulty
	stepCount
	stepOptions
)

// wizard collects a quiz configuration one step at a time
type wizard struct {
	step   wizardStep
	config models.QuizConfiguration
}

// next moves past the current step and reports whether the configuration is complete
func (w *wizard) next() bool {
	switch w.step {
	case stepTopic:
		w.step = stepMode
	case stepMode:
		w.step = stepDifficulty
	case stepDifficulty:
		w.step = stepCount
	case stepCount:
		if w.config.Mode == models.TrueFalse {
			return true
		}
		w.step = stepOptions
	case stepOptions:
		return true
	}
	return false
}

// apply handles a wizard button press. Presses for another step are ignored.
func (w *wizard) apply(data string) (handled bool) {
	switch {
	case data == callbackDefaultTopic && w.step == stepTopic:
		w.config.Topic = ""
	case strings.HasPrefix(data, prefixMode) && w.step == stepMode:
		mode, ok := models.ParseMode(strings.TrimPrefix(data, prefixMode))
		if !ok {
			return false
		}
		w.config.Mode = mode
	case strings.HasPrefix(data, prefixDiff) && w.step == stepDifficulty:
		difficulty, ok := models.ParseDifficulty(strings.TrimPrefix(data, prefixDiff))
		if !ok {
			return false
		}
		w.config.Difficulty = difficulty
	case strings.HasPrefix(data, prefixCount) && w.step == stepCount:
		n, err := strconv.Atoi(strings.TrimPrefix(data, prefixCount))
		if err != nil {
			return false
		}
		w.config.NumQuestions = n
	case strings.HasPrefix(data, prefixOptions) && w.step == stepOptions:
		n, err := strconv.Atoi(strings.TrimPrefix(data, prefixOptions))
		if err != nil {
			return false
		}
		w.config.NumOptions = n
	default:
		return false
	}
	return true
}

// applyText handles typed input for the steps that accept it
func (w *wizard) applyText(text string) (handled bool, problem string) {
	text = strings.TrimSpace(text)
	switch w.step {
	case stepTopic:
		if text == "" {
			return false, "Please send a topic or a PDF file."
		}
		w.config.Topic = text
	case stepCount:
		n, err := strconv.Atoi(text)
		if err != nil {
			return false, fmt.Sprintf("Please enter a number from %d to %d.", models.MinQuestions, models.MaxQuestions)
		}
		w.config.NumQuestions = clampInput(n, models.MinQuestions, models.MaxQuestions)
	case stepOptions:
		n, err := strconv.Atoi(text)
		if err != nil {
			return false, fmt.Sprintf("Please enter a number from %d to %d.", models.MinOptions, models.MaxOptions)
		}
		w.config.NumOptions = clampInput(n, models.MinOptions, models.MaxOptions)
	default:
		return false, "Please use the buttons above."
	}
	return true, ""
}

func clampInput(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// prompt returns the message asking for the current step
func (w *wizard) prompt(chatID int64) tgbotapi.MessageConfig {
	var text string
	var buttons [][]MenuButton

	switch w.step {
	case stepTopic:
		text = "📝 Send me a topic for your quiz, or upload a PDF to be quizzed on its content."
		buttons = [][]MenuButton{
			{{Text: "🎲 " + models.DefaultTopic, CallbackData: callbackDefaultTopic}},
		}
	case stepMode:
		text = fmt.Sprintf("Topic: %s\n\nChoose the question type:", w.config.EffectiveTopic())
		buttons = [][]MenuButton{
			{
				{Text: "🔤 Multiple choice", CallbackData: prefixMode + string(models.MultipleChoice)},
				{Text: "⚖️ True / False", CallbackData: prefixMode + string(models.TrueFalse)},
			},
		}
	case stepDifficulty:
		text = "Choose the difficulty:"
		buttons = [][]MenuButton{
			{
				{Text: "🟢 Easy", CallbackData: prefixDiff + string(models.Easy)},
				{Text: "🟡 Medium", CallbackData: prefixDiff + string(models.Medium)},
				{Text: "🔴 Hard", CallbackData: prefixDiff + string(models.Hard)},
			},
		}
	case stepCount:
		text = fmt.Sprintf("How many questions? Pick one or type a number from %d to %d.", models.MinQuestions, models.MaxQuestions)
		buttons = [][]MenuButton{countButtons(prefixCount, 5, 10, 15, 20)}
	case stepOptions:
		text = fmt.Sprintf("How many options per question? (%d-%d)", models.MinOptions, models.MaxOptions)
		buttons = [][]MenuButton{countButtons(prefixOptions, 2, 3, 4, 5)}
	}

	buttons = append(buttons, []MenuButton{{Text: "✖️ Cancel", CallbackData: callbackCancel}})
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(buttons)
	return msg
}

func countButtons(prefix string, values ...int) []MenuButton {
	row := make([]MenuButton, 0, len(values))
	for _, v := range values {
		row = append(row, MenuButton{Text: strconv.Itoa(v), CallbackData: prefix + strconv.Itoa(v)})
	}
	return row
}

// isPDF accepts documents by media type or, when Telegram sent none, by extension
func isPDF(doc *tgbotapi.Document) bool {
	if doc.MimeType != "" {
		return doc.MimeType == models.DefaultMediaType
	}
	return strings.EqualFold(filepath.Ext(doc.FileName), ".pdf")
}

// downloadFile fetches an uploaded file, refusing anything larger than the configured limit
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file URL: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: HTTP %d", resp.StatusCode)
	}

	limit := int64(b.config.MaxDocumentSize)
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %v", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file is larger than %d bytes", limit)
	}
	return data, nil
}
