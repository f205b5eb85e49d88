package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"starquiz-service/internal/app"
	"starquiz-service/internal/domain"
)

// Store implements app.Store on top of Postgres via bun. Per-user
// serialization comes from a SELECT ... FOR UPDATE on the user row at the
// start of every transaction: submissions, finalizations, and purchases for
// one user queue behind each other while other users proceed in parallel.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// lock timeout for contended user rows; exceeding it surfaces as a
// retryable ErrStorageTransient with no partial write.
const lockTimeoutStmt = "SET LOCAL lock_timeout = '5s'"

func (s *Store) WithUserTx(ctx context.Context, userID int64, fn func(ctx context.Context, tx app.Tx) error) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, btx bun.Tx) error {
		if _, err := btx.ExecContext(ctx, lockTimeoutStmt); err != nil {
			return err
		}
		row := new(UserRow)
		err := btx.NewSelect().Model(row).Where("u.id = ?", userID).For("UPDATE").Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrUserNotFound
			}
			return err
		}
		return fn(ctx, &pgTx{tx: btx, user: row})
	})
	return mapStorageErr(err)
}

// RefillStarsToTarget raises each below-target user in its own
// single-statement transaction, so the cycle never holds row locks across
// users and a user mid-submission only blocks their own update. The
// re-checked stars guard keeps the write monotone against balance changes
// between the scan and the update.
func (s *Store) RefillStarsToTarget(ctx context.Context, target int) (int, error) {
	var ids []int64
	if err := s.db.NewSelect().
		Model((*UserRow)(nil)).
		Column("id").
		Where("stars < ?", target).
		Scan(ctx, &ids); err != nil {
		return 0, mapStorageErr(err)
	}

	updated := 0
	now := time.Now()
	for _, id := range ids {
		res, err := s.db.NewUpdate().
			Model((*UserRow)(nil)).
			Set("stars = ?", target).
			Set("last_star_refill = ?", now).
			Where("id = ? AND stars < ?", id, target).
			Exec(ctx)
		if err != nil {
			return updated, mapStorageErr(err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return updated, err
		}
		updated += int(rows)
	}
	return updated, nil
}

// IsAdmin reports whether the user carries the admin flag.
func (s *Store) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var admin bool
	err := s.db.NewSelect().
		Model((*UserRow)(nil)).
		Column("is_admin").
		Where("u.id = ?", userID).
		Scan(ctx, &admin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrUserNotFound
	}
	return admin, err
}

// pgTx is the per-user unit of work. The user row is locked for the
// lifetime of the transaction and mirrored in memory so balance reads and
// clamped adjustments never re-query.
type pgTx struct {
	tx   bun.Tx
	user *UserRow
}

func (t *pgTx) Balance(context.Context) (domain.Balance, error) {
	return domain.Balance{UserID: t.user.ID, Stars: t.user.Stars, Gems: t.user.Gems}, nil
}

func (t *pgTx) AdjustStars(ctx context.Context, delta int) (int, error) {
	next := t.user.Stars + delta
	if next < 0 {
		next = 0
	}
	_, err := t.tx.NewUpdate().
		Model((*UserRow)(nil)).
		Set("stars = ?", next).
		Where("id = ?", t.user.ID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	t.user.Stars = next
	return next, nil
}

func (t *pgTx) AdjustGems(ctx context.Context, delta int) (int, error) {
	next := t.user.Gems + delta
	if next < 0 {
		next = 0
	}
	_, err := t.tx.NewUpdate().
		Model((*UserRow)(nil)).
		Set("gems = ?", next).
		Where("id = ?", t.user.ID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	t.user.Gems = next
	return next, nil
}

func (t *pgTx) HasAnswered(ctx context.Context, quizID, questionID int64) (bool, error) {
	return t.tx.NewSelect().
		Model((*UserAnswerRow)(nil)).
		Where("ua.user_id = ? AND ua.quiz_id = ? AND ua.question_id = ?", t.user.ID, quizID, questionID).
		Where("ua.selected_option_id IS NOT NULL").
		Exists(ctx)
}

func (t *pgTx) RecordAnswer(ctx context.Context, rec domain.AnswerRecord) error {
	row := &UserAnswerRow{
		UserID:           rec.UserID,
		QuizID:           rec.QuizID,
		QuestionID:       rec.QuestionID,
		SelectedOptionID: &rec.SelectedOptionID,
		IsCorrect:        &rec.IsCorrect,
		AnsweredAt:       &rec.AnsweredAt,
	}
	// Reuse the reset row if one exists; the WHERE guard turns a conflict
	// with a live answer into zero affected rows.
	res, err := t.tx.NewInsert().
		Model(row).
		On("CONFLICT (user_id, quiz_id, question_id) DO UPDATE").
		Set("selected_option_id = EXCLUDED.selected_option_id").
		Set("is_correct = EXCLUDED.is_correct").
		Set("answered_at = EXCLUDED.answered_at").
		Where("user_answers.selected_option_id IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrDuplicateAnswer
	}
	return nil
}

func (t *pgTx) AnswersForQuiz(ctx context.Context, quizID int64) ([]domain.AnswerScore, error) {
	var rows []struct {
		IsCorrect   bool `bun:"is_correct"`
		StarsReward int  `bun:"stars_reward"`
	}
	err := t.tx.NewSelect().
		TableExpr("user_answers AS ua").
		ColumnExpr("ua.is_correct, q.stars_reward").
		Join("JOIN questions AS q ON q.id = ua.question_id").
		Where("ua.user_id = ? AND ua.quiz_id = ?", t.user.ID, quizID).
		Where("ua.selected_option_id IS NOT NULL").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	scores := make([]domain.AnswerScore, 0, len(rows))
	for _, row := range rows {
		weight := row.StarsReward
		if weight <= 0 {
			weight = 1
		}
		scores = append(scores, domain.AnswerScore{IsCorrect: row.IsCorrect, RewardWeight: weight})
	}
	return scores, nil
}

func (t *pgTx) ResetAnswers(ctx context.Context, quizID int64) error {
	_, err := t.tx.NewUpdate().
		Model((*UserAnswerRow)(nil)).
		Set("selected_option_id = NULL").
		Set("is_correct = NULL").
		Set("answered_at = NULL").
		Where("user_id = ? AND quiz_id = ?", t.user.ID, quizID).
		Exec(ctx)
	return err
}

func (t *pgTx) AttemptSummary(ctx context.Context, quizID int64) (domain.AttemptSummary, bool, error) {
	row := new(UserQuizRow)
	err := t.tx.NewSelect().
		Model(row).
		Where("uq.user_id = ? AND uq.quiz_id = ?", t.user.ID, quizID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AttemptSummary{}, false, nil
	}
	if err != nil {
		return domain.AttemptSummary{}, false, err
	}
	return domain.AttemptSummary{
		UserID:       row.UserID,
		QuizID:       row.QuizID,
		Completed:    row.Completed,
		Score:        row.Score,
		ScorePercent: row.ScorePercent,
		GemsAwarded:  row.GemsAwarded,
		CompletedAt:  row.CompletedAt,
	}, true, nil
}

func (t *pgTx) UpsertSummary(ctx context.Context, summary domain.AttemptSummary) error {
	row := &UserQuizRow{
		UserID:       summary.UserID,
		QuizID:       summary.QuizID,
		Completed:    summary.Completed,
		Score:        summary.Score,
		ScorePercent: summary.ScorePercent,
		GemsAwarded:  summary.GemsAwarded,
		CompletedAt:  summary.CompletedAt,
	}
	_, err := t.tx.NewInsert().
		Model(row).
		On("CONFLICT (user_id, quiz_id) DO UPDATE").
		Set("completed = EXCLUDED.completed").
		Set("score = EXCLUDED.score").
		Set("score_percent = EXCLUDED.score_percent").
		Set("gems_awarded = EXCLUDED.gems_awarded").
		Set("completed_at = EXCLUDED.completed_at").
		Exec(ctx)
	return err
}

func (t *pgTx) QuizGemReward(ctx context.Context, quizID int64) (int, error) {
	var reward int
	err := t.tx.NewSelect().
		Model((*QuizRow)(nil)).
		Column("gems_reward").
		Where("qz.id = ?", quizID).
		Scan(ctx, &reward)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return reward, err
}

// mapStorageErr keeps domain errors intact and turns lock/statement
// timeouts into the retryable transient kind.
func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		// 55P03 lock_not_available, 57014 query_canceled (statement timeout)
		if code := pgErr.Field('C'); code == "55P03" || code == "57014" {
			return fmt.Errorf("%w: %v", domain.ErrStorageTransient, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStorageTransient, err)
	}
	return err
}
