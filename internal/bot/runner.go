package bot

import (
	"context"
	"log"

	"github.com/example/quizbot/internal/quiz"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sendQuestion shows the current question with one button per option.
// It is called with state locked.
func (b *Bot) sendQuestion(chatID int64, state *chatState) {
	session := state.session
	q, ok := session.Current()
	if !ok {
		return
	}

	progress := session.Progress()
	mode := session.Config().Mode
	msg := tgbotapi.NewMessage(chatID, formatQuestion(mode, progress, q))
	msg.ReplyMarkup = createKeyboard(questionButtons(session.ID(), mode, q, progress.QuestionIndex, nil))
	b.send(msg)
}

// activeSession returns the chat's session when the press belongs to its current question
func activeSession(state *chatState, sessionID string, question int) *quiz.Session {
	session := state.session
	if session == nil || session.ID() != sessionID || session.Progress().QuestionIndex != question {
		return nil
	}
	return session
}

// handleAnswer submits an option press. Stale and repeated presses are ignored.
func (b *Bot) handleAnswer(chatID int64, messageID int, data string) {
	sessionID, question, option, ok := parseAnswerData(data)
	if !ok {
		log.Printf("Invalid answer callback data: %q", data)
		return
	}

	state := b.chat(chatID)
	state.mu.Lock()
	defer state.mu.Unlock()

	session := activeSession(state, sessionID, question)
	if session == nil {
		return
	}
	state.lastActive = b.now()

	feedback, err := session.SubmitAnswer(option)
	if err != nil {
		log.Printf("Rejected answer in chat %d: %v", chatID, err)
		return
	}
	if feedback.Duplicate {
		return
	}

	q, _ := session.Current()
	mode := session.Config().Mode
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID,
		createKeyboard(questionButtons(sessionID, mode, q, question, &feedback)))
	b.send(edit)

	label := "➡️ Next question"
	if feedback.Last {
		label = "🏁 See results"
	}
	msg := tgbotapi.NewMessage(chatID, formatFeedback(feedback, q))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: label, CallbackData: nextData(sessionID, question)}},
	})
	b.send(msg)
}

// handleNext advances past an answered question and finishes the quiz after the last one
func (b *Bot) handleNext(ctx context.Context, chatID int64, data string) {
	sessionID, question, ok := parseNextData(data)
	if !ok {
		log.Printf("Invalid next callback data: %q", data)
		return
	}

	state := b.chat(chatID)
	state.mu.Lock()
	defer state.mu.Unlock()

	session := activeSession(state, sessionID, question)
	if session == nil || session.State() != quiz.Answered {
		return
	}
	state.lastActive = b.now()

	if err := session.Advance(); err != nil {
		log.Printf("Error advancing quiz in chat %d: %v", chatID, err)
		return
	}
	if !session.Finished() {
		b.sendQuestion(chatID, state)
		return
	}

	state.session = nil
	result, stored, err := b.quizzes.Complete(ctx, session, b.historyStore(chatID))
	if err != nil {
		log.Printf("Error completing quiz in chat %d: %v", chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatResult(result, stored))
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	b.send(msg)
}
