package models

import "time"

// QuizResult is the outcome of one finished quiz session
type QuizResult struct {
	ID             string    `json:"id"`
	Date           time.Time `json:"date"` // RFC 3339 in storage
	Topic          string    `json:"topic"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Difficulty     string    `json:"difficulty"`
}

// Percentage returns the score as a share of the total in [0, 100]
func (r QuizResult) Percentage() int {
	if r.TotalQuestions <= 0 {
		return 0
	}
	return r.Score * 100 / r.TotalQuestions
}

// Passed reports whether at least half of the answers were correct
func (r QuizResult) Passed() bool {
	return r.TotalQuestions > 0 && r.Score*2 >= r.TotalQuestions
}
