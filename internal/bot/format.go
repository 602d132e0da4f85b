package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/quizbot/internal/quiz"
	"github.com/example/quizbot/pkg/models"
)

// Constants for callback data
const (
	callbackConsent      = "consent_accept"
	callbackNewQuiz      = "new_quiz"
	callbackShowHistory  = "show_history"
	callbackCancel       = "cancel_action"
	callbackNoop         = "noop"
	callbackDefaultTopic = "wiz_topic_default"

	prefixMode    = "wiz_mode_"
	prefixDiff    = "wiz_diff_"
	prefixCount   = "wiz_count_"
	prefixOptions = "wiz_opts_"
	prefixAnswer  = "ans:"
	prefixNext    = "next:"
)

// answerData encodes an option press; the question index makes stale presses detectable
func answerData(sessionID string, question, option int) string {
	return fmt.Sprintf("%s%s:%d:%d", prefixAnswer, sessionID, question, option)
}

func parseAnswerData(data string) (sessionID string, question, option int, ok bool) {
	if !strings.HasPrefix(data, prefixAnswer) {
		return "", 0, 0, false
	}
	parts := strings.Split(strings.TrimPrefix(data, prefixAnswer), ":")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, 0, false
	}
	question, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, false
	}
	option, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, false
	}
	return parts[0], question, option, true
}

func nextData(sessionID string, question int) string {
	return fmt.Sprintf("%s%s:%d", prefixNext, sessionID, question)
}

func parseNextData(data string) (sessionID string, question int, ok bool) {
	if !strings.HasPrefix(data, prefixNext) {
		return "", 0, false
	}
	parts := strings.Split(strings.TrimPrefix(data, prefixNext), ":")
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, false
	}
	question, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return parts[0], question, true
}

// optionLabel returns A, B, C... for multiple choice and the option itself otherwise
func optionLabel(mode models.Mode, options []string, i int) string {
	if mode == models.TrueFalse {
		return options[i]
	}
	return string(rune('A' + i))
}

func formatQuestion(mode models.Mode, p quiz.Progress, q models.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❓ Question %d/%d\n\n%s", p.QuestionIndex+1, p.TotalQuestions, q.Question)
	if mode != models.TrueFalse {
		b.WriteString("\n")
		for i, option := range q.Options {
			fmt.Fprintf(&b, "\n%s) %s", optionLabel(mode, q.Options, i), option)
		}
	}
	return b.String()
}

// questionButtons returns one button per option, or marked buttons once answered
func questionButtons(sessionID string, mode models.Mode, q models.Question, index int, fb *quiz.Feedback) [][]MenuButton {
	var rows [][]MenuButton
	var row []MenuButton
	for i := range q.Options {
		label := optionLabel(mode, q.Options, i)
		data := answerData(sessionID, index, i)
		if fb != nil {
			data = callbackNoop
			switch {
			case i == fb.CorrectIndex:
				label = "✅ " + label
			case i == fb.Selected:
				label = "❌ " + label
			}
		}
		row = append(row, MenuButton{Text: label, CallbackData: data})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func formatFeedback(fb quiz.Feedback, q models.Question) string {
	var b strings.Builder
	if fb.Correct {
		b.WriteString("✅ Correct!")
	} else {
		fmt.Fprintf(&b, "❌ Incorrect. The answer is: %s", q.Options[fb.CorrectIndex])
	}
	if strings.TrimSpace(fb.Explanation) != "" {
		fmt.Fprintf(&b, "\n\n%s", fb.Explanation)
	}
	return b.String()
}

func formatResult(result models.QuizResult, stored bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏁 Quiz complete: %s\n\n", result.Topic)
	fmt.Fprintf(&b, "Score: %d/%d (%d%%)\n", result.Score, result.TotalQuestions, result.Percentage())
	if result.Passed() {
		b.WriteString("🎉 Great job!")
	} else {
		b.WriteString("📚 Keep practicing!")
	}
	if stored {
		b.WriteString("\n\nSaved to your /history.")
	}
	return b.String()
}

func formatHistory(results []models.QuizResult) string {
	if len(results) == 0 {
		return "📭 No quiz history yet. Use /quiz to start one."
	}

	var b strings.Builder
	b.WriteString("📊 Your recent quizzes:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s  %s (%s)  %d/%d",
			i+1, r.Date.UTC().Format("2006-01-02 15:04"), r.Topic, r.Difficulty, r.Score, r.TotalQuestions)
	}
	return b.String()
}
