package app

import (
	"context"

	"starquiz-service/internal/domain"
)

// Tx is one unit of work scoped to a single user. Implementations guarantee
// that everything done through a Tx is serialized against other transactions
// for the same user and commits atomically: either every mutation in the
// callback lands, or none does.
type Tx interface {
	// Balance returns the user's current star/gem counters.
	Balance(ctx context.Context) (domain.Balance, error)
	// AdjustStars applies delta to the star balance, clamped at a 0 floor,
	// and returns the new balance.
	AdjustStars(ctx context.Context, delta int) (int, error)
	// AdjustGems applies delta to the gem balance, clamped at a 0 floor,
	// and returns the new balance.
	AdjustGems(ctx context.Context, delta int) (int, error)
	// HasAnswered reports whether an answered (non-reset) record exists for
	// the question under the given quiz.
	HasAnswered(ctx context.Context, quizID, questionID int64) (bool, error)
	// RecordAnswer persists one answer, reusing a previously reset row if
	// one exists.
	RecordAnswer(ctx context.Context, rec domain.AnswerRecord) error
	// AnswersForQuiz returns the scoring view of every answered record for
	// the quiz. Reset rows are excluded. Order is not meaningful.
	AnswersForQuiz(ctx context.Context, quizID int64) ([]domain.AnswerScore, error)
	// ResetAnswers marks every answer of the quiz as unanswered without
	// deleting rows.
	ResetAnswers(ctx context.Context, quizID int64) error
	// AttemptSummary loads the (user, quiz) summary if one exists.
	AttemptSummary(ctx context.Context, quizID int64) (domain.AttemptSummary, bool, error)
	// UpsertSummary inserts or overwrites the (user, quiz) summary.
	UpsertSummary(ctx context.Context, summary domain.AttemptSummary) error
	// QuizGemReward returns the quiz's fixed gem reward, 0 if the quiz is
	// unknown.
	QuizGemReward(ctx context.Context, quizID int64) (int, error)
}

// Store is the durable state behind the attempt and economy engines.
type Store interface {
	// WithUserTx runs fn inside a transaction holding exclusive access to
	// the user's rows. Returns domain.ErrUserNotFound if the user does not
	// exist; any error from fn rolls the transaction back.
	WithUserTx(ctx context.Context, userID int64, fn func(ctx context.Context, tx Tx) error) error
	// RefillStarsToTarget raises every user below target to exactly target
	// stars and returns how many users were updated. Per-user atomicity;
	// never decreases a balance.
	RefillStarsToTarget(ctx context.Context, target int) (int, error)
	// QuizProgress builds the combined quiz payload for a user.
	QuizProgress(ctx context.Context, userID, quizID int64) (domain.QuizProgress, error)
	// HomeOverview builds the subject/quiz overview payload for a user.
	HomeOverview(ctx context.Context, userID int64) (domain.HomeOverview, error)
}

// QuestionResolver looks up the scoring key of a question under a quiz.
// Pure lookup: content is immutable from the engine's perspective, so
// implementations are free to cache aggressively.
type QuestionResolver interface {
	// Resolve returns domain.ErrQuestionNotFound if the question does not
	// exist or does not belong to the given quiz.
	Resolve(ctx context.Context, quizID, questionID int64) (domain.QuestionKey, error)
}
