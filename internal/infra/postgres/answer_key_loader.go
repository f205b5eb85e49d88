package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"starquiz-service/internal/domain"
)

// AnswerKeyLoader reads question scoring keys from Postgres over a pgx
// pool. It backs the Redis cache on cold quizzes and doubles as a direct
// app.QuestionResolver when no cache is configured.
type AnswerKeyLoader struct {
	pool *pgxpool.Pool
}

func NewAnswerKeyLoader(pool *pgxpool.Pool) *AnswerKeyLoader {
	return &AnswerKeyLoader{pool: pool}
}

// LoadQuizKey returns the scoring key of every question in the quiz.
func (l *AnswerKeyLoader) LoadQuizKey(ctx context.Context, quizID int64) (map[int64]domain.QuestionKey, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, correct_option_id, stars_reward FROM questions WHERE quiz_id=$1`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	defer rows.Close()

	keys := make(map[int64]domain.QuestionKey)
	for rows.Next() {
		var (
			id        int64
			correctID *int64
			reward    int
		)
		if err := rows.Scan(&id, &correctID, &reward); err != nil {
			return nil, fmt.Errorf("scan answer key: %w", err)
		}
		key := domain.QuestionKey{QuestionID: id, StarsReward: reward}
		if correctID != nil {
			key.CorrectOptionID = *correctID
		}
		keys[id] = key
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	return keys, nil
}

// Resolve looks up a single question under a quiz, the uncached path.
func (l *AnswerKeyLoader) Resolve(ctx context.Context, quizID, questionID int64) (domain.QuestionKey, error) {
	var (
		correctID *int64
		reward    int
	)
	err := l.pool.QueryRow(ctx,
		`SELECT correct_option_id, stars_reward FROM questions WHERE id=$1 AND quiz_id=$2`,
		questionID, quizID).Scan(&correctID, &reward)
	if err == pgx.ErrNoRows {
		return domain.QuestionKey{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.QuestionKey{}, fmt.Errorf("resolve question: %w", err)
	}
	key := domain.QuestionKey{QuestionID: questionID, StarsReward: reward}
	if correctID != nil {
		key.CorrectOptionID = *correctID
	}
	return key, nil
}
