package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"starquiz-service/internal/domain"
)

// Content CRUD for the admin surface. Plain bun queries; questions and
// their options are written together in one transaction so
// correct_option_id always references a live option.

func (s *Store) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	var rows []SubjectRow
	if err := s.db.NewSelect().Model(&rows).Order("s.id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	subjects := make([]domain.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, domain.Subject{ID: row.ID, Title: row.Title})
	}
	return subjects, nil
}

func (s *Store) AddSubject(ctx context.Context, title string) (int64, error) {
	row := &SubjectRow{Title: title}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *Store) UpdateSubject(ctx context.Context, id int64, title string) error {
	res, err := s.db.NewUpdate().
		Model((*SubjectRow)(nil)).
		Set("title = ?", title).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrSubjectNotFound)
}

func (s *Store) DeleteSubject(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*SubjectRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrSubjectNotFound)
}

func (s *Store) QuizzesBySubject(ctx context.Context, subjectID int64) ([]domain.Quiz, error) {
	var rows []QuizRow
	if err := s.db.NewSelect().Model(&rows).
		Where("qz.subject_id = ?", subjectID).
		Order("qz.id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	quizzes := make([]domain.Quiz, 0, len(rows))
	for _, row := range rows {
		quizzes = append(quizzes, domain.Quiz{ID: row.ID, SubjectID: row.SubjectID, Title: row.Title, GemsReward: row.GemsReward})
	}
	return quizzes, nil
}

func (s *Store) AddQuiz(ctx context.Context, subjectID int64, title string, gemsReward int) (int64, error) {
	row := &QuizRow{SubjectID: subjectID, Title: title, GemsReward: gemsReward}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *Store) UpdateQuiz(ctx context.Context, id int64, title string, gemsReward int) error {
	res, err := s.db.NewUpdate().
		Model((*QuizRow)(nil)).
		Set("title = ?", title).
		Set("gems_reward = ?", gemsReward).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrQuizNotFound)
}

func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*QuizRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrQuizNotFound)
}

func (s *Store) QuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error) {
	var rows []QuestionRow
	if err := s.db.NewSelect().Model(&rows).
		Where("q.quiz_id = ?", quizID).
		Order("q.id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		q, err := s.questionFromRow(ctx, s.db, row)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	row := new(QuestionRow)
	err := s.db.NewSelect().Model(row).Where("q.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, err
	}
	return s.questionFromRow(ctx, s.db, *row)
}

func (s *Store) AddQuestion(ctx context.Context, input domain.QuestionInput) (int64, error) {
	var questionID int64
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		row := &QuestionRow{
			QuizID:       input.QuizID,
			QuestionText: input.Text,
			QuestionType: input.Type,
			StarsReward:  input.StarsReward,
		}
		if _, err := tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
			return err
		}
		questionID = row.ID
		return s.writeOptions(ctx, tx, questionID, input)
	})
	if err != nil {
		return 0, err
	}
	return questionID, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, id int64, input domain.QuestionInput) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*QuestionRow)(nil)).
			Set("question_text = ?", input.Text).
			Set("question_type = ?", input.Type).
			Set("stars_reward = ?", input.StarsReward).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res, domain.ErrQuestionNotFound); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*OptionRow)(nil)).
			Where("question_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		return s.writeOptions(ctx, tx, id, input)
	})
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*QuestionRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrQuestionNotFound)
}

// writeOptions inserts the option rows and points correct_option_id at the
// one selected by index.
func (s *Store) writeOptions(ctx context.Context, tx bun.Tx, questionID int64, input domain.QuestionInput) error {
	var correctID *int64
	for i, text := range input.Options {
		opt := &OptionRow{QuestionID: questionID, OptionText: text}
		if _, err := tx.NewInsert().Model(opt).Returning("id").Exec(ctx); err != nil {
			return err
		}
		if i == input.CorrectOptionIndex {
			id := opt.ID
			correctID = &id
		}
	}
	if correctID == nil {
		return nil
	}
	_, err := tx.NewUpdate().
		Model((*QuestionRow)(nil)).
		Set("correct_option_id = ?", *correctID).
		Where("id = ?", questionID).
		Exec(ctx)
	return err
}

func (s *Store) questionFromRow(ctx context.Context, db bun.IDB, row QuestionRow) (domain.Question, error) {
	var opts []OptionRow
	if err := db.NewSelect().Model(&opts).
		Where("opt.question_id = ?", row.ID).
		Order("opt.id ASC").
		Scan(ctx); err != nil {
		return domain.Question{}, err
	}
	q := domain.Question{
		ID:          row.ID,
		QuizID:      row.QuizID,
		Text:        row.QuestionText,
		Type:        row.QuestionType,
		StarsReward: row.StarsReward,
	}
	if row.CorrectOptionID != nil {
		q.CorrectOptionID = *row.CorrectOptionID
	}
	for _, opt := range opts {
		q.Options = append(q.Options, domain.Option{ID: opt.ID, Text: opt.OptionText})
	}
	return q, nil
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
