package questions

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("question not found")
	ErrAlreadyAnswered   = errors.New("question already answered")
	QueryTimeoutDuration = time.Second * 5
)

// Question lifecycle.
const (
	StatusPending  = "pending"
	StatusAssigned = "assigned"
	StatusAnswered = "answered"
)

type Question struct {
	ID         int64          `json:"id"`
	Code       string         `json:"code"` // short public reference, e.g. SORU-8K2M
	StudentID  int64          `json:"student_id"`
	CoachID    sql.NullInt64  `json:"coach_id" swaggertype:"integer"`
	Subject    string         `json:"subject"`
	Text       string         `json:"text"`
	ImageURL   sql.NullString `json:"image_url" swaggertype:"string"`
	Status     string         `json:"status"`
	Answer     sql.NullString `json:"answer" swaggertype:"string"`
	CreatedAt  time.Time      `json:"created_at"`
	AnsweredAt sql.NullTime   `json:"answered_at" swaggertype:"string"`
}
