package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/example/quizbot/internal/ai"
	"github.com/example/quizbot/internal/excel"
	"github.com/example/quizbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MainMenuButtons returns the buttons for the main menu
func MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🎯 New quiz", CallbackData: callbackNewQuiz},
			{Text: "📊 History", CallbackData: callbackShowHistory},
		},
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	switch message.Command() {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.handleHelp(chatID)
	case "quiz":
		b.handleQuiz(chatID, message.CommandArguments())
	case "history":
		b.handleHistory(ctx, chatID)
	case "export":
		b.handleExport(ctx, chatID, message.CommandArguments())
	case "clearhistory":
		b.handleClearHistory(ctx, chatID)
	case "cancel":
		b.handleCancel(chatID)
	default:
		msg := tgbotapi.NewMessage(chatID, "Unknown command. Use /help to see what I can do.")
		msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		b.send(msg)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	text := "👋 Welcome to the AI quiz bot!\n\n" +
		"Pick a topic or upload a PDF and I will generate a quiz for you."

	if !b.historyStore(chatID).HasConsented(ctx) {
		msg := tgbotapi.NewMessage(chatID, text+"\n\n"+
			"🍪 I can keep your last 10 quiz results so you can review them with /history. "+
			"Press Accept to allow it. You can still play without it.")
		msg.ReplyMarkup = createKeyboard(append([][]MenuButton{
			{{Text: "✅ Accept", CallbackData: callbackConsent}},
		}, MainMenuButtons()...))
		b.send(msg)
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	b.send(msg)
}

func (b *Bot) handleHelp(chatID int64) {
	b.sendText(chatID, "Commands:\n"+
		"/quiz [topic] - start a new quiz\n"+
		"/history - your last 10 results\n"+
		"/export [xlsx|csv] - download your history\n"+
		"/clearhistory - delete your history\n"+
		"/cancel - stop the current quiz")
}

func (b *Bot) handleConsent(ctx context.Context, chatID int64) {
	if err := b.historyStore(chatID).GiveConsent(ctx); err != nil {
		log.Printf("Error saving consent for chat %d: %v", chatID, err)
		b.sendText(chatID, "❌ Could not save your choice. Please try again later.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, "✅ Thanks! Your quiz results will be saved.")
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	b.send(msg)
}

// handleQuiz opens the configuration wizard, abandoning any running quiz
func (b *Bot) handleQuiz(chatID int64, topic string) {
	state := b.chat(chatID)
	state.mu.Lock()
	defer state.mu.Unlock()

	state.lastActive = b.now()
	if state.generating {
		b.sendText(chatID, "⏳ Your quiz is still being generated, please wait.")
		return
	}

	w := &wizard{step: stepTopic}
	if topic = strings.TrimSpace(topic); topic != "" {
		w.config.Topic = topic
		w.next()
	}
	state.session = nil
	state.wizard = w
	b.send(w.prompt(chatID))
}

func (b *Bot) handleCancel(chatID int64) {
	state := b.chat(chatID)
	state.mu.Lock()
	defer state.mu.Unlock()

	state.lastActive = b.now()
	switch {
	case state.generating:
		b.sendText(chatID, "⏳ Your quiz is being generated and can't be cancelled now.")
	case state.wizard == nil && state.session == nil:
		b.sendText(chatID, "Nothing to cancel.")
	default:
		state.wizard = nil
		state.session = nil
		msg := tgbotapi.NewMessage(chatID, "Cancelled.")
		msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		b.send(msg)
	}
}

// handleMessage feeds plain messages and uploads to the wizard
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	state := b.chat(chatID)

	state.mu.Lock()
	state.lastActive = b.now()
	w := state.wizard
	if w == nil {
		state.mu.Unlock()
		msg := tgbotapi.NewMessage(chatID, "Use /quiz to start a new quiz.")
		msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		b.send(msg)
		return
	}

	if message.Document != nil {
		if w.step != stepTopic {
			state.mu.Unlock()
			b.sendText(chatID, "Please use the buttons above.")
			return
		}
		state.downloading = true
		state.mu.Unlock()
		b.handleDocument(ctx, chatID, state, w, message)
		return
	}

	handled, problem := w.applyText(message.Text)
	if !handled {
		state.mu.Unlock()
		b.sendText(chatID, problem)
		return
	}
	b.advanceWizard(ctx, chatID, state, w)
}

// handleDocument attaches an uploaded PDF to the wizard's configuration.
// The chat is marked as downloading and unlocked on entry.
func (b *Bot) handleDocument(ctx context.Context, chatID int64, state *chatState, w *wizard, message *tgbotapi.Message) {
	data, ok := b.fetchDocument(ctx, chatID, message.Document)

	state.mu.Lock()
	state.downloading = false
	state.lastActive = b.now()
	if !ok {
		state.mu.Unlock()
		return
	}
	if state.wizard != w || w.step != stepTopic {
		state.mu.Unlock()
		b.sendText(chatID, "The quiz setup ended before your file arrived. Use /quiz to start again.")
		return
	}
	w.config.Document = &models.Document{Name: message.Document.FileName, MediaType: models.DefaultMediaType, Data: data}
	if caption := strings.TrimSpace(message.Caption); caption != "" {
		w.config.Topic = caption
	}
	b.advanceWizard(ctx, chatID, state, w)
}

// fetchDocument checks and downloads an upload, telling the user when it cannot be used
func (b *Bot) fetchDocument(ctx context.Context, chatID int64, doc *tgbotapi.Document) ([]byte, bool) {
	if !isPDF(doc) {
		b.sendText(chatID, "Only PDF documents are supported.")
		return nil, false
	}
	if doc.FileSize > b.config.MaxDocumentSize {
		b.sendText(chatID, "This file is too large. The limit is 20 MB.")
		return nil, false
	}

	data, err := b.downloadFile(ctx, doc.FileID)
	if err != nil {
		log.Printf("Error downloading document for chat %d: %v", chatID, err)
		b.sendText(chatID, "❌ Could not download the file. Please try again.")
		return nil, false
	}
	if len(data) == 0 {
		b.sendText(chatID, "This file is empty.")
		return nil, false
	}
	return data, true
}

// advanceWizard moves to the next step. It is called with state locked and unlocks it.
func (b *Bot) advanceWizard(ctx context.Context, chatID int64, state *chatState, w *wizard) {
	if !w.next() {
		b.send(w.prompt(chatID))
		state.mu.Unlock()
		return
	}

	state.wizard = nil
	state.generating = true
	state.mu.Unlock()

	b.generate(ctx, chatID, state, w.config)
}

// generate runs the single provider call for a configuration and starts the quiz
func (b *Bot) generate(ctx context.Context, chatID int64, state *chatState, config models.QuizConfiguration) {
	config = config.Normalize()
	b.sendText(chatID, fmt.Sprintf("⏳ Generating %d questions about %s...", config.NumQuestions, config.EffectiveTopic()))

	session, err := b.quizzes.Start(ctx, config)

	state.mu.Lock()
	defer state.mu.Unlock()
	state.generating = false
	state.lastActive = b.now()

	if err != nil {
		log.Printf("Error generating quiz for chat %d: %v", chatID, err)
		text := "❌ Failed to generate the quiz. Please try again."
		if errors.Is(err, ai.ErrCredentialMissing) {
			text = "⚠️ Quiz generation is not configured on this bot."
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		b.send(msg)
		return
	}

	state.session = session
	b.sendQuestion(chatID, state)
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64) {
	results := b.historyStore(chatID).List(ctx)
	b.sendText(chatID, formatHistory(results))
}

func (b *Bot) handleExport(ctx context.Context, chatID int64, format string) {
	results := b.historyStore(chatID).List(ctx)
	if len(results) == 0 {
		b.sendText(chatID, "📭 There is no history to export.")
		return
	}

	var buf bytes.Buffer
	if err := excel.ExportHistory(&buf, results, format); err != nil {
		log.Printf("Error exporting history for chat %d: %v", chatID, err)
		b.sendText(chatID, "❌ Could not export your history. Supported formats: xlsx, csv.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: excel.FileName(format), Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("Your last %d quiz results", len(results))
	b.send(doc)
}

func (b *Bot) handleClearHistory(ctx context.Context, chatID int64) {
	if err := b.historyStore(chatID).Clear(ctx); err != nil {
		log.Printf("Error clearing history for chat %d: %v", chatID, err)
		b.sendText(chatID, "❌ Could not clear your history. Please try again later.")
		return
	}
	b.sendText(chatID, "🗑 Your quiz history was cleared.")
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || callback.Message.Chat == nil {
		return
	}

	// Always answer the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("Warning: Failed to answer callback: %v", err)
	}

	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	switch callback.Data {
	case callbackConsent:
		b.handleConsent(ctx, chatID)
	case callbackNewQuiz:
		b.handleQuiz(chatID, "")
	case callbackShowHistory:
		b.handleHistory(ctx, chatID)
	case callbackCancel:
		b.handleCancel(chatID)
	case callbackNoop:
	default:
		switch {
		case strings.HasPrefix(callback.Data, prefixAnswer):
			b.handleAnswer(chatID, messageID, callback.Data)
		case strings.HasPrefix(callback.Data, prefixNext):
			b.handleNext(ctx, chatID, callback.Data)
		default:
			b.handleWizardChoice(ctx, chatID, callback.Data)
		}
	}
}

func (b *Bot) handleWizardChoice(ctx context.Context, chatID int64, data string) {
	state := b.chat(chatID)
	state.mu.Lock()
	state.lastActive = b.now()

	w := state.wizard
	if w == nil {
		state.mu.Unlock()
		b.sendText(chatID, "This menu has expired. Use /quiz to start again.")
		return
	}
	if !w.apply(data) {
		state.mu.Unlock()
		return
	}
	b.advanceWizard(ctx, chatID, state, w)
}
