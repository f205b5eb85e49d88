package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"starquiz-service/internal/domain"
)

// AttemptService drives a user's lifecycle through a quiz: answer
// submission, finalization, and failed-attempt reset.
type AttemptService struct {
	store    Store
	resolver QuestionResolver
	log      *zap.Logger
	now      func() time.Time
}

func NewAttemptService(store Store, resolver QuestionResolver, log *zap.Logger) *AttemptService {
	return newAttemptServiceWithClock(store, resolver, log, time.Now)
}

// newAttemptServiceWithClock allows deterministic timestamps in tests.
func newAttemptServiceWithClock(store Store, resolver QuestionResolver, log *zap.Logger, now func() time.Time) *AttemptService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttemptService{store: store, resolver: resolver, log: log, now: now}
}

// SubmitAnswer scores one answer and applies the star delta, all within a
// single per-user transaction: the duplicate check, the balance update, and
// the answer record commit together or not at all.
//
// A correct answer earns the question's reward weight; a wrong answer costs
// one star, unless the user is already at zero stars, in which case the
// submission is rejected with NotReadyError and nothing is recorded — the
// question stays open for a later retry.
func (s *AttemptService) SubmitAnswer(ctx context.Context, userID, quizID, questionID, selectedOptionID int64) (domain.SubmissionResult, error) {
	var res domain.SubmissionResult
	err := s.store.WithUserTx(ctx, userID, func(ctx context.Context, tx Tx) error {
		bal, err := tx.Balance(ctx)
		if err != nil {
			return err
		}

		answered, err := tx.HasAnswered(ctx, quizID, questionID)
		if err != nil {
			return err
		}
		if answered {
			key, err := s.resolver.Resolve(ctx, quizID, questionID)
			if err != nil {
				return err
			}
			return &domain.AlreadyAnsweredError{CorrectOptionID: key.CorrectOptionID}
		}

		key, err := s.resolver.Resolve(ctx, quizID, questionID)
		if err != nil {
			return err
		}

		isCorrect := selectedOptionID == key.CorrectOptionID
		delta := key.RewardWeight()
		if !isCorrect {
			if bal.Stars <= 0 {
				return &domain.NotReadyError{CurrentStars: bal.Stars}
			}
			delta = -1
		}

		stars, err := tx.AdjustStars(ctx, delta)
		if err != nil {
			return err
		}
		if err := tx.RecordAnswer(ctx, domain.AnswerRecord{
			UserID:           userID,
			QuizID:           quizID,
			QuestionID:       questionID,
			SelectedOptionID: selectedOptionID,
			IsCorrect:        isCorrect,
			AnsweredAt:       s.now(),
		}); err != nil {
			return err
		}

		res = domain.SubmissionResult{
			IsCorrect:        isCorrect,
			CorrectOptionID:  key.CorrectOptionID,
			SelectedOptionID: selectedOptionID,
			StarsDelta:       delta,
			CurrentStars:     stars,
		}
		return nil
	})
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	s.log.Debug("answer submitted",
		zap.Int64("user", userID),
		zap.Int64("quiz", quizID),
		zap.Int64("question", questionID),
		zap.Bool("correct", res.IsCorrect),
		zap.Int("starsDelta", res.StarsDelta))
	return res, nil
}

// FinishQuiz aggregates the recorded answers, computes the score, and
// persists the attempt summary. Passing (>= 50%) awards the quiz's gem
// reward exactly once and makes the summary terminal: a second finish
// returns AlreadyCompletedError with the stored result. A failed attempt is
// stored with completed=false and can be finalized again after a reset.
//
// A computed 0% is stored as 1%. This is a deliberate display floor carried
// over from the product, not a scoring rule.
func (s *AttemptService) FinishQuiz(ctx context.Context, userID, quizID int64) (domain.FinalizationResult, error) {
	var res domain.FinalizationResult
	err := s.store.WithUserTx(ctx, userID, func(ctx context.Context, tx Tx) error {
		summary, ok, err := tx.AttemptSummary(ctx, quizID)
		if err != nil {
			return err
		}
		if ok && summary.Completed {
			return &domain.AlreadyCompletedError{
				ScorePercent: summary.ScorePercent,
				GemsAwarded:  summary.GemsAwarded,
			}
		}

		answers, err := tx.AnswersForQuiz(ctx, quizID)
		if err != nil {
			return err
		}
		if len(answers) == 0 {
			return domain.ErrNoAnswers
		}

		totalWeight, earnedWeight := 0, 0
		for _, a := range answers {
			totalWeight += a.RewardWeight
			if a.IsCorrect {
				earnedWeight += a.RewardWeight
			}
		}

		scorePercent := earnedWeight * 100 / totalWeight
		if scorePercent == 0 {
			scorePercent = 1
		}
		passed := scorePercent >= 50

		gems := 0
		var completedAt *time.Time
		if passed {
			gems, err = tx.QuizGemReward(ctx, quizID)
			if err != nil {
				return err
			}
			if gems > 0 {
				if _, err := tx.AdjustGems(ctx, gems); err != nil {
					return err
				}
			}
			now := s.now()
			completedAt = &now
		}

		if err := tx.UpsertSummary(ctx, domain.AttemptSummary{
			UserID:       userID,
			QuizID:       quizID,
			Completed:    passed,
			Score:        earnedWeight,
			ScorePercent: scorePercent,
			GemsAwarded:  gems,
			CompletedAt:  completedAt,
		}); err != nil {
			return err
		}

		res = domain.FinalizationResult{
			Score:        earnedWeight,
			ScorePercent: scorePercent,
			Passed:       passed,
			GemsAwarded:  gems,
		}
		return nil
	})
	if err != nil {
		return domain.FinalizationResult{}, err
	}
	s.log.Info("quiz finished",
		zap.Int64("user", userID),
		zap.Int64("quiz", quizID),
		zap.Int("scorePercent", res.ScorePercent),
		zap.Bool("passed", res.Passed),
		zap.Int("gemsAwarded", res.GemsAwarded))
	return res, nil
}

// ResetFailedQuiz marks every answer of a failed attempt as unanswered and
// zeroes the summary so the attempt can restart. Passed attempts are
// immutable: reset is rejected with ErrUserPassed.
func (s *AttemptService) ResetFailedQuiz(ctx context.Context, userID, quizID int64) error {
	return s.store.WithUserTx(ctx, userID, func(ctx context.Context, tx Tx) error {
		summary, ok, err := tx.AttemptSummary(ctx, quizID)
		if err != nil {
			return err
		}
		if ok && summary.ScorePercent >= 50 {
			return domain.ErrUserPassed
		}
		if err := tx.ResetAnswers(ctx, quizID); err != nil {
			return err
		}
		if ok {
			return tx.UpsertSummary(ctx, domain.AttemptSummary{
				UserID: userID,
				QuizID: quizID,
			})
		}
		return nil
	})
}

// Progress returns the combined quiz payload: questions, prior answers,
// summary state, and current balances.
func (s *AttemptService) Progress(ctx context.Context, userID, quizID int64) (domain.QuizProgress, error) {
	return s.store.QuizProgress(ctx, userID, quizID)
}

// Home returns the subject overview payload for the user.
func (s *AttemptService) Home(ctx context.Context, userID int64) (domain.HomeOverview, error) {
	return s.store.HomeOverview(ctx, userID)
}
