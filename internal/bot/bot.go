package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/example/quizbot/internal/history"
	"github.com/example/quizbot/internal/quiz"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// botAPI is the part of *tgbotapi.BotAPI the bot uses
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// chatState is everything the bot remembers about one chat between updates
type chatState struct {
	mu          sync.Mutex
	wizard      *wizard
	session     *quiz.Session
	generating  bool
	downloading bool
	lastActive  time.Time
}

// Bot represents the Telegram bot application
type Bot struct {
	api        botAPI
	tg         *tgbotapi.BotAPI
	config     *BotConfig
	quizzes    *quiz.Service
	storage    history.Storage
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	chats map[int64]*chatState
}

// New creates a new bot instance
func New(config *BotConfig, quizzes *quiz.Service, storage history.Storage) (*Bot, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	if quizzes == nil || storage == nil {
		return nil, fmt.Errorf("quiz service and storage are required")
	}
	return newBot(config, quizzes, storage), nil
}

func newBot(config *BotConfig, quizzes *quiz.Service, storage history.Storage) *Bot {
	if config.MaxDocumentSize <= 0 {
		config.MaxDocumentSize = MaxDocumentSize
	}
	return &Bot{
		config:     config,
		quizzes:    quizzes,
		storage:    storage,
		httpClient: &http.Client{},
		now:        time.Now,
		chats:      make(map[int64]*chatState),
	}
}

// Start connects to Telegram and handles updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	tg, err := tgbotapi.NewBotAPI(b.config.Token)
	if err != nil {
		return fmt.Errorf("unable to create bot: %v", err)
	}

	b.tg = tg
	b.api = tg
	log.Printf("Authorized on account %s", tg.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout

	updates := b.tg.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// Stop stops receiving updates
func (b *Bot) Stop() {
	if b.tg != nil {
		b.tg.StopReceivingUpdates()
	}
}

// chat returns the state of a chat, creating it on first use
func (b *Bot) chat(chatID int64) *chatState {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.chats[chatID]
	if !ok {
		state = &chatState{lastActive: b.now()}
		b.chats[chatID] = state
	}
	return state
}

// SweepIdleSessions forgets chats with no activity for maxIdle.
// Chats waiting for a generation result or an upload are kept.
func (b *Bot) SweepIdleSessions(maxIdle time.Duration) int {
	cutoff := b.now().Add(-maxIdle)

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for chatID, state := range b.chats {
		state.mu.Lock()
		idle := !state.generating && !state.downloading && state.lastActive.Before(cutoff)
		state.mu.Unlock()
		if idle {
			delete(b.chats, chatID)
			removed++
		}
	}
	return removed
}

// historyStore returns the history of a chat
func (b *Bot) historyStore(chatID int64) *history.Store {
	return history.NewStore(b.storage, fmt.Sprintf("%d", chatID), b.config.HistoryTTL)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic while handling update %d: %v", update.UpdateID, r)
		}
	}()

	if update.Message != nil {
		if update.Message.Chat == nil {
			return
		}
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
			return
		}
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}
