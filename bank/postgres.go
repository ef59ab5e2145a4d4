package bank

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dinomed-server/models"
)

// PostgresBank reads the bank from a Postgres `questions` table (the authoring
// backend stores one row per question with options, accepted answers and tags
// as JSONB). The table is owned by the authoring service; this side is
// strictly read-only.
type PostgresBank struct {
	pool *pgxpool.Pool
}

// NewPostgresBank opens a connection pool and verifies it with a ping.
func NewPostgresBank(ctx context.Context, connString string) (*PostgresBank, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping question bank database: %w", err)
	}

	log.Println("Connected to question bank database")
	return &PostgresBank{pool: pool}, nil
}

const questionColumns = `
	id, subject, qtype, prompt, tags, difficulty, options, correct_index, accepted, explanation
`

func scanQuestion(row pgx.Row) (models.Question, error) {
	var q models.Question
	var qtype string
	var correctIndex *int
	err := row.Scan(
		&q.ID, &q.Subject, &qtype, &q.Prompt, &q.Tags, &q.Difficulty,
		&q.Options, &correctIndex, &q.Accepted, &q.Explanation,
	)
	if err != nil {
		return q, err
	}
	q.Type = models.QuestionType(qtype)
	if correctIndex != nil {
		q.CorrectIndex = *correctIndex
	}
	if err := q.Validate(); err != nil {
		return q, fmt.Errorf("invalid bank row: %w", err)
	}
	return q, nil
}

func (p *PostgresBank) FetchAll(ctx context.Context) ([]models.Question, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions`)
	if err != nil {
		return nil, fmt.Errorf("querying question bank: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning question row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading question bank: %w", err)
	}
	return questions, nil
}

func (p *PostgresBank) FetchByID(ctx context.Context, id string) (models.Question, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Question{}, ErrQuestionNotFound
	}
	if err != nil {
		return models.Question{}, fmt.Errorf("fetching question %s: %w", id, err)
	}
	return q, nil
}

func (p *PostgresBank) Close() { p.pool.Close() }
