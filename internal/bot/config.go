package bot

import (
	"time"

	"github.com/example/quizbot/internal/history"
)

// MaxDocumentSize is the largest file the Bot API lets a bot download
const MaxDocumentSize = 20 << 20

// BotConfig represents the configuration for the bot
type BotConfig struct {
	Token string
	// Lifetime of stored history and consent entries
	HistoryTTL time.Duration
	// Largest accepted source document in bytes
	MaxDocumentSize int
	// Long-poll timeout in seconds
	UpdateTimeout int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		HistoryTTL:      history.DefaultTTL,
		MaxDocumentSize: MaxDocumentSize,
		UpdateTimeout:   60,
	}
}
