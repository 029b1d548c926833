package questions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Create(ctx context.Context, q *Question) error
	SetCode(ctx context.Context, questionID int64, code string) error
	GetByID(ctx context.Context, questionID int64) (*Question, error)
	GetByCode(ctx context.Context, code string) (*Question, error)
	ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]Question, error)
	ListPending(ctx context.Context, subject string, limit int) ([]Question, error)
	AssignCoach(ctx context.Context, questionID, coachID int64) error
	Answer(ctx context.Context, questionID, coachID int64, answer string) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const questionColumns = `id, code, student_id, coach_id, subject, text, image_url, status, answer, created_at, answered_at`

func scanQuestion(row pgx.Row, q *Question) error {
	return row.Scan(
		&q.ID,
		&q.Code,
		&q.StudentID,
		&q.CoachID,
		&q.Subject,
		&q.Text,
		&q.ImageURL,
		&q.Status,
		&q.Answer,
		&q.CreatedAt,
		&q.AnsweredAt,
	)
}

func (r *Repository) Create(ctx context.Context, q *Question) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	INSERT INTO questions (student_id, subject, text, image_url, status)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at
	`

	q.Status = StatusPending
	return r.db.QueryRow(ctx, query, q.StudentID, q.Subject, q.Text, q.ImageURL, q.Status).
		Scan(&q.ID, &q.CreatedAt)
}

// SetCode stores the public reference once the generator derived it from the
// row id.
func (r *Repository) SetCode(ctx context.Context, questionID int64, code string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE questions SET code = $1 WHERE id = $2`, code, questionID)
	return err
}

func (r *Repository) GetByID(ctx context.Context, questionID int64) (*Question, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var q Question
	err := scanQuestion(r.db.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, questionID), &q)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*Question, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var q Question
	err := scanQuestion(r.db.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE code = $1`, code), &q)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *Repository) ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + questionColumns + ` FROM questions WHERE student_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, studentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *Repository) ListPending(ctx context.Context, subject string, limit int) ([]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	SELECT ` + questionColumns + `
	FROM questions
	WHERE status = 'pending' AND ($1 = '' OR subject = $1)
	ORDER BY created_at ASC
	LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, subject, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *Repository) AssignCoach(ctx context.Context, questionID, coachID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`UPDATE questions SET coach_id = $1, status = 'assigned' WHERE id = $2 AND status = 'pending'`,
		coachID, questionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Answer(ctx context.Context, questionID, coachID int64, answer string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
	UPDATE questions
	SET answer = $1, status = 'answered', answered_at = NOW()
	WHERE id = $2 AND coach_id = $3 AND status = 'assigned'`,
		answer, questionID, coachID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyAnswered
	}
	return nil
}
