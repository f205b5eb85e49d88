package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"starquiz-service/internal/domain"
)

// QuizProgress assembles the combined quiz payload: subject title, summary
// state, balances, and every question with options and the user's previous
// answer. Read-only; no locking.
func (s *Store) QuizProgress(ctx context.Context, userID, quizID int64) (domain.QuizProgress, error) {
	progress := domain.QuizProgress{Questions: []domain.QuestionProgress{}}

	user := new(UserRow)
	if err := s.db.NewSelect().Model(user).Where("u.id = ?", userID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return progress, domain.ErrUserNotFound
		}
		return progress, err
	}
	progress.CurrentStars = user.Stars
	progress.CurrentGems = user.Gems

	var subjectTitle string
	err := s.db.NewSelect().
		TableExpr("quizzes AS qz").
		ColumnExpr("s.title").
		Join("JOIN subjects AS s ON s.id = qz.subject_id").
		Where("qz.id = ?", quizID).
		Scan(ctx, &subjectTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return progress, domain.ErrQuizNotFound
	}
	if err != nil {
		return progress, err
	}
	progress.Subject = subjectTitle

	summary := new(UserQuizRow)
	err = s.db.NewSelect().Model(summary).
		Where("uq.user_id = ? AND uq.quiz_id = ?", userID, quizID).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return progress, err
	}
	if err == nil && summary.Completed {
		progress.Completed = true
		progress.Score = summary.Score
		progress.ScorePercent = summary.ScorePercent
	}

	var questions []QuestionRow
	if err := s.db.NewSelect().Model(&questions).
		Where("q.quiz_id = ?", quizID).
		Order("q.id ASC").
		Scan(ctx); err != nil {
		return progress, err
	}
	if len(questions) == 0 {
		return progress, nil
	}

	questionIDs := make([]int64, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.ID)
	}

	var options []OptionRow
	if err := s.db.NewSelect().Model(&options).
		Where("opt.question_id IN (?)", bun.In(questionIDs)).
		Order("opt.id ASC").
		Scan(ctx); err != nil {
		return progress, err
	}
	optionsByQuestion := make(map[int64][]domain.Option)
	for _, opt := range options {
		optionsByQuestion[opt.QuestionID] = append(optionsByQuestion[opt.QuestionID], domain.Option{ID: opt.ID, Text: opt.OptionText})
	}

	var answers []UserAnswerRow
	if err := s.db.NewSelect().Model(&answers).
		Where("ua.user_id = ? AND ua.quiz_id = ?", userID, quizID).
		Where("ua.selected_option_id IS NOT NULL").
		Scan(ctx); err != nil {
		return progress, err
	}
	answerByQuestion := make(map[int64]UserAnswerRow, len(answers))
	for _, ans := range answers {
		answerByQuestion[ans.QuestionID] = ans
	}

	for _, q := range questions {
		qp := domain.QuestionProgress{
			QuestionID:  q.ID,
			Type:        q.QuestionType,
			Text:        q.QuestionText,
			Options:     optionsByQuestion[q.ID],
			StarsReward: q.StarsReward,
		}
		if q.CorrectOptionID != nil {
			qp.CorrectOptionID = *q.CorrectOptionID
		}
		if ans, ok := answerByQuestion[q.ID]; ok {
			qp.Answered = true
			qp.SelectedOptionID = ans.SelectedOptionID
			qp.IsCorrect = ans.IsCorrect
		}
		progress.Questions = append(progress.Questions, qp)
	}
	return progress, nil
}

// HomeOverview assembles the subject/quiz overview with the user's
// completion state per quiz.
func (s *Store) HomeOverview(ctx context.Context, userID int64) (domain.HomeOverview, error) {
	user := new(UserRow)
	if err := s.db.NewSelect().Model(user).Where("u.id = ?", userID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.HomeOverview{}, domain.ErrUserNotFound
		}
		return domain.HomeOverview{}, err
	}
	overview := domain.HomeOverview{
		Username: user.Username,
		Stars:    user.Stars,
		Gems:     user.Gems,
		Subjects: []domain.SubjectOverview{},
	}

	var subjects []SubjectRow
	if err := s.db.NewSelect().Model(&subjects).Order("s.id ASC").Scan(ctx); err != nil {
		return overview, err
	}

	var quizzes []QuizRow
	if err := s.db.NewSelect().Model(&quizzes).Order("qz.id ASC").Scan(ctx); err != nil {
		return overview, err
	}

	var summaries []UserQuizRow
	if err := s.db.NewSelect().Model(&summaries).
		Where("uq.user_id = ?", userID).
		Scan(ctx); err != nil {
		return overview, err
	}
	summaryByQuiz := make(map[int64]UserQuizRow, len(summaries))
	for _, sum := range summaries {
		summaryByQuiz[sum.QuizID] = sum
	}

	for _, subject := range subjects {
		entry := domain.SubjectOverview{ID: subject.ID, Title: subject.Title, Quizzes: []domain.QuizStatus{}}
		for _, quiz := range quizzes {
			if quiz.SubjectID != subject.ID {
				continue
			}
			status := domain.QuizStatus{ID: quiz.ID, Title: quiz.Title}
			if sum, ok := summaryByQuiz[quiz.ID]; ok {
				status.Completed = sum.Completed
				status.ScorePercent = sum.ScorePercent
			}
			entry.Quizzes = append(entry.Quizzes, status)
		}
		overview.Subjects = append(overview.Subjects, entry)
	}
	return overview, nil
}
