package conversations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	GetOrCreate(ctx context.Context, studentID, coachID int64) (*Conversation, error)
	GetByID(ctx context.Context, conversationID int64) (*Conversation, error)
	AddMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID int64, limit, offset int) ([]Message, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

// GetOrCreate returns the existing student↔coach channel or opens one.
func (r *Repository) GetOrCreate(ctx context.Context, studentID, coachID int64) (*Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	INSERT INTO conversations (student_id, coach_id)
	VALUES ($1, $2)
	ON CONFLICT (student_id, coach_id) DO UPDATE SET student_id = EXCLUDED.student_id
	RETURNING id, student_id, coach_id, created_at
	`

	var c Conversation
	err := r.db.QueryRow(ctx, query, studentID, coachID).
		Scan(&c.ID, &c.StudentID, &c.CoachID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetByID(ctx context.Context, conversationID int64) (*Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var c Conversation
	err := r.db.QueryRow(ctx,
		`SELECT id, student_id, coach_id, created_at FROM conversations WHERE id = $1`,
		conversationID).
		Scan(&c.ID, &c.StudentID, &c.CoachID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repository) AddMessage(ctx context.Context, m *Message) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	INSERT INTO messages (conversation_id, sender_id, body)
	VALUES ($1, $2, $3)
	RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, m.ConversationID, m.SenderID, m.Body).
		Scan(&m.ID, &m.CreatedAt)
}

func (r *Repository) ListMessages(ctx context.Context, conversationID int64, limit, offset int) ([]Message, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	SELECT id, conversation_id, sender_id, body, created_at
	FROM messages
	WHERE conversation_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
