package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/quizbot/internal/database"
	"github.com/example/quizbot/pkg/models"
)

// Storage entry names
const (
	HistoryEntry = "quiz_history"
	ConsentEntry = "quiz_consent"
)

// Capacity is the number of results kept per client
const Capacity = 10

// DefaultTTL keeps stored entries for a year
const DefaultTTL = 365 * 24 * time.Hour

const consentValue = "true"

// Storage is a fallible named-entry store scoped by client.
// Get returns database.ErrNotFound for absent entries.
type Storage interface {
	Get(ctx context.Context, clientID, name string) (string, error)
	Put(ctx context.Context, clientID, name, value string, ttl time.Duration) error
	Delete(ctx context.Context, clientID, name string) error
}

// StorageReadError reports stored history that could not be read or parsed.
// Corrupt is set when the entry was read but could not be decoded.
type StorageReadError struct {
	ClientID string
	Corrupt  bool
	Err      error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("failed to read history for client %s: %v", e.ClientID, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// Store keeps the bounded, most-recent-first result history of one client
type Store struct {
	storage  Storage
	clientID string
	ttl      time.Duration
}

// NewStore creates a history store for a client. A zero ttl means DefaultTTL.
func NewStore(storage Storage, clientID string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{storage: storage, clientID: clientID, ttl: ttl}
}

// Append puts result first and drops the oldest entries beyond Capacity.
// The whole sequence is written in one call. Undecodable history is
// replaced; when storage cannot be read nothing is written.
func (s *Store) Append(ctx context.Context, result models.QuizResult) error {
	results, err := s.load(ctx)
	if err != nil {
		var readErr *StorageReadError
		if !errors.As(err, &readErr) || !readErr.Corrupt {
			return err
		}
		log.Printf("Discarding unreadable history: %v", err)
		results = nil
	}

	updated := make([]models.QuizResult, 0, Capacity)
	updated = append(updated, result)
	updated = append(updated, results...)
	if len(updated) > Capacity {
		updated = updated[:Capacity]
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to encode history: %v", err)
	}
	if err := s.storage.Put(ctx, s.clientID, HistoryEntry, string(data), s.ttl); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// List returns a snapshot of the history, most recent first.
// Unreadable history is logged and reported as empty.
func (s *Store) List(ctx context.Context) []models.QuizResult {
	results, err := s.load(ctx)
	if err != nil {
		log.Printf("Error reading history: %v", err)
		return []models.QuizResult{}
	}
	return results
}

// Clear removes the stored history
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.clientID, HistoryEntry); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// HasConsented reports whether the client allowed history to be stored.
// Storage failures read as no consent.
func (s *Store) HasConsented(ctx context.Context) bool {
	value, err := s.storage.Get(ctx, s.clientID, ConsentEntry)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Printf("Error reading consent for client %s: %v", s.clientID, err)
		}
		return false
	}
	return value == consentValue
}

// GiveConsent stores the consent flag
func (s *Store) GiveConsent(ctx context.Context) error {
	if err := s.storage.Put(ctx, s.clientID, ConsentEntry, consentValue, s.ttl); err != nil {
		return fmt.Errorf("failed to save consent: %w", err)
	}
	return nil
}

// load decodes the stored sequence. An absent entry is an empty history.
func (s *Store) load(ctx context.Context) ([]models.QuizResult, error) {
	data, err := s.storage.Get(ctx, s.clientID, HistoryEntry)
	if errors.Is(err, database.ErrNotFound) {
		return []models.QuizResult{}, nil
	}
	if err != nil {
		return nil, &StorageReadError{ClientID: s.clientID, Err: err}
	}

	var results []models.QuizResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return nil, &StorageReadError{ClientID: s.clientID, Corrupt: true, Err: err}
	}
	if results == nil {
		results = []models.QuizResult{}
	}
	if len(results) > Capacity {
		results = results[:Capacity]
	}
	return results, nil
}
