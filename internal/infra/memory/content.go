package memory

import (
	"context"

	"starquiz-service/internal/domain"
)

// Content CRUD. Simple map operations; the only invariant is referential
// integrity (quiz -> subject, question -> quiz).

func (s *Store) ListSubjects(context.Context) ([]domain.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedSubjects(), nil
}

func (s *Store) AddSubject(_ context.Context, title string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	s.subjects[id] = domain.Subject{ID: id, Title: title}
	return id, nil
}

func (s *Store) UpdateSubject(_ context.Context, id int64, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[id]; !ok {
		return domain.ErrSubjectNotFound
	}
	s.subjects[id] = domain.Subject{ID: id, Title: title}
	return nil
}

func (s *Store) DeleteSubject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[id]; !ok {
		return domain.ErrSubjectNotFound
	}
	delete(s.subjects, id)
	return nil
}

func (s *Store) QuizzesBySubject(_ context.Context, subjectID int64) ([]domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedSubjectQuizzes(subjectID), nil
}

func (s *Store) AddQuiz(_ context.Context, subjectID int64, title string, gemsReward int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[subjectID]; !ok {
		return 0, domain.ErrSubjectNotFound
	}
	id := s.allocID()
	s.quizzes[id] = domain.Quiz{ID: id, SubjectID: subjectID, Title: title, GemsReward: gemsReward}
	return id, nil
}

func (s *Store) UpdateQuiz(_ context.Context, id int64, title string, gemsReward int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.Title = title
	quiz.GemsReward = gemsReward
	s.quizzes[id] = quiz
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	for qid, q := range s.questions {
		if q.QuizID == id {
			delete(s.questions, qid)
		}
	}
	delete(s.quizzes, id)
	return nil
}

func (s *Store) QuestionsByQuiz(_ context.Context, quizID int64) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedQuizQuestions(quizID), nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) AddQuestion(_ context.Context, input domain.QuestionInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[input.QuizID]; !ok {
		return 0, domain.ErrQuizNotFound
	}
	id := s.allocID()
	s.questions[id] = s.buildQuestion(id, input)
	return id, nil
}

func (s *Store) UpdateQuestion(_ context.Context, id int64, input domain.QuestionInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	input.QuizID = existing.QuizID
	s.questions[id] = s.buildQuestion(id, input)
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) buildQuestion(id int64, input domain.QuestionInput) domain.Question {
	q := domain.Question{
		ID:          id,
		QuizID:      input.QuizID,
		Text:        input.Text,
		Type:        input.Type,
		StarsReward: input.StarsReward,
	}
	for i, text := range input.Options {
		optID := s.allocID()
		q.Options = append(q.Options, domain.Option{ID: optID, Text: text})
		if i == input.CorrectOptionIndex {
			q.CorrectOptionID = optID
		}
	}
	return q
}
