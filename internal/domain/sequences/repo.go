package sequences

import (
	"context"
	"errors"

	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

// Next атомарно выдаёт следующий номер. UPDATE держит блокировку строки до конца транзакции.
func (r *Repo) Next(ctx context.Context, code string) (string, error) {
	var (
		prefix  string
		padding int
		n       int64
	)
	err := r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE sequences
		SET next_number = next_number + step
		WHERE code = $1
		RETURNING prefix, padding, next_number - step
	`, code).Scan(&prefix, &padding, &n)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnknownSequence
	}
	if err != nil {
		return "", err
	}
	return Format(prefix, padding, n), nil
}

func (r *Repo) Create(ctx context.Context, s Sequence) error {
	if s.Step <= 0 {
		s.Step = 1
	}
	if s.NextNumber <= 0 {
		s.NextNumber = 1
	}
	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO sequences (code, prefix, padding, next_number, step)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (code) DO NOTHING
	`, s.Code, s.Prefix, s.Padding, s.NextNumber, s.Step)
	return err
}
