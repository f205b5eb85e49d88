package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"starquiz-service/internal/app"
	"starquiz-service/internal/domain"
)

// Store is an in-memory implementation of app.Store, app.QuestionResolver,
// and the content CRUD used by the admin surface. Each user carries its own
// mutex, so transactions for different users never serialize against each
// other. All field writes (balances, answer records, summaries) additionally
// happen under the store-wide mutex, so read-only payload builders holding
// s.mu see consistent state. Lock order is always u.mu before s.mu.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*user
	subjects  map[int64]domain.Subject
	quizzes   map[int64]domain.Quiz
	questions map[int64]domain.Question
	answers   map[answerKey]*answerRecord
	summaries map[attemptKey]domain.AttemptSummary
	clock     func() time.Time
}

type user struct {
	mu         sync.Mutex
	id         int64
	username   string
	admin      bool
	stars      int
	gems       int
	lastRefill time.Time
}

type answerKey struct {
	userID, quizID, questionID int64
}

type attemptKey struct {
	userID, quizID int64
}

type answerRecord struct {
	selectedOptionID *int64
	isCorrect        bool
	answeredAt       *time.Time
}

func NewStore() *Store {
	return &Store{
		users:     make(map[int64]*user),
		subjects:  make(map[int64]domain.Subject),
		quizzes:   make(map[int64]domain.Quiz),
		questions: make(map[int64]domain.Question),
		answers:   make(map[answerKey]*answerRecord),
		summaries: make(map[attemptKey]domain.AttemptSummary),
		clock:     time.Now,
	}
}

func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

// AddUser seeds a user and returns its id.
func (s *Store) AddUser(username string, stars, gems int, admin bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	s.users[id] = &user{id: id, username: username, admin: admin, stars: stars, gems: gems}
	return id
}

// IsAdmin reports whether the user carries the admin flag.
func (s *Store) IsAdmin(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	return u.admin, nil
}

// WithUserTx serializes on the user's own mutex and rolls every staged
// mutation back if fn fails.
func (s *Store) WithUserTx(ctx context.Context, userID int64, fn func(ctx context.Context, tx app.Tx) error) error {
	s.mu.Lock()
	u, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return domain.ErrUserNotFound
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	tx := &userTx{store: s, user: u}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// RefillStarsToTarget raises every user below target to exactly target.
func (s *Store) RefillStarsToTarget(_ context.Context, target int) (int, error) {
	s.mu.Lock()
	all := make([]*user, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	now := s.clock()
	s.mu.Unlock()

	updated := 0
	for _, u := range all {
		u.mu.Lock()
		s.mu.Lock()
		if u.stars < target {
			u.stars = target
			u.lastRefill = now
			updated++
		}
		s.mu.Unlock()
		u.mu.Unlock()
	}
	return updated, nil
}

// userTx applies mutations directly under the user's lock and keeps an undo
// log so a failed transaction leaves no partial state.
type userTx struct {
	store *Store
	user  *user
	undo  []func()
}

func (t *userTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *userTx) Balance(context.Context) (domain.Balance, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Balance{UserID: t.user.id, Stars: t.user.stars, Gems: t.user.gems}, nil
}

func (t *userTx) AdjustStars(_ context.Context, delta int) (int, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := t.user.stars
	next := prev + delta
	if next < 0 {
		next = 0
	}
	t.user.stars = next
	t.undo = append(t.undo, func() {
		s.mu.Lock()
		t.user.stars = prev
		s.mu.Unlock()
	})
	return next, nil
}

func (t *userTx) AdjustGems(_ context.Context, delta int) (int, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := t.user.gems
	next := prev + delta
	if next < 0 {
		next = 0
	}
	t.user.gems = next
	t.undo = append(t.undo, func() {
		s.mu.Lock()
		t.user.gems = prev
		s.mu.Unlock()
	})
	return next, nil
}

func (t *userTx) HasAnswered(_ context.Context, quizID, questionID int64) (bool, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.answers[answerKey{t.user.id, quizID, questionID}]
	return ok && rec.selectedOptionID != nil, nil
}

func (t *userTx) RecordAnswer(_ context.Context, rec domain.AnswerRecord) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := answerKey{rec.UserID, rec.QuizID, rec.QuestionID}
	existing, ok := s.answers[key]
	if ok && existing.selectedOptionID != nil {
		return domain.ErrDuplicateAnswer
	}

	selected := rec.SelectedOptionID
	at := rec.AnsweredAt
	if ok {
		prev := *existing
		existing.selectedOptionID = &selected
		existing.isCorrect = rec.IsCorrect
		existing.answeredAt = &at
		t.undo = append(t.undo, func() {
			s.mu.Lock()
			*existing = prev
			s.mu.Unlock()
		})
		return nil
	}
	s.answers[key] = &answerRecord{selectedOptionID: &selected, isCorrect: rec.IsCorrect, answeredAt: &at}
	t.undo = append(t.undo, func() {
		s.mu.Lock()
		delete(s.answers, key)
		s.mu.Unlock()
	})
	return nil
}

func (t *userTx) AnswersForQuiz(_ context.Context, quizID int64) ([]domain.AnswerScore, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var scores []domain.AnswerScore
	for key, rec := range s.answers {
		if key.userID != t.user.id || key.quizID != quizID || rec.selectedOptionID == nil {
			continue
		}
		weight := 1
		if q, ok := s.questions[key.questionID]; ok && q.StarsReward > 0 {
			weight = q.StarsReward
		}
		scores = append(scores, domain.AnswerScore{IsCorrect: rec.isCorrect, RewardWeight: weight})
	}
	return scores, nil
}

func (t *userTx) ResetAnswers(_ context.Context, quizID int64) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rec := range s.answers {
		if key.userID != t.user.id || key.quizID != quizID {
			continue
		}
		prev := *rec
		r := rec
		r.selectedOptionID = nil
		r.isCorrect = false
		r.answeredAt = nil
		t.undo = append(t.undo, func() {
			s.mu.Lock()
			*r = prev
			s.mu.Unlock()
		})
	}
	return nil
}

func (t *userTx) AttemptSummary(_ context.Context, quizID int64) (domain.AttemptSummary, bool, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.summaries[attemptKey{t.user.id, quizID}]
	return summary, ok, nil
}

func (t *userTx) UpsertSummary(_ context.Context, summary domain.AttemptSummary) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey{summary.UserID, summary.QuizID}
	prev, existed := s.summaries[key]
	s.summaries[key] = summary
	t.undo = append(t.undo, func() {
		s.mu.Lock()
		if existed {
			s.summaries[key] = prev
		} else {
			delete(s.summaries, key)
		}
		s.mu.Unlock()
	})
	return nil
}

func (t *userTx) QuizGemReward(_ context.Context, quizID int64) (int, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if quiz, ok := s.quizzes[quizID]; ok {
		return quiz.GemsReward, nil
	}
	return 0, nil
}

// Resolve implements app.QuestionResolver straight off the content maps.
func (s *Store) Resolve(_ context.Context, quizID, questionID int64) (domain.QuestionKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok || q.QuizID != quizID {
		return domain.QuestionKey{}, domain.ErrQuestionNotFound
	}
	return domain.QuestionKey{
		QuestionID:      q.ID,
		CorrectOptionID: q.CorrectOptionID,
		StarsReward:     q.StarsReward,
	}, nil
}

// QuizProgress builds the combined quiz payload for a user.
func (s *Store) QuizProgress(_ context.Context, userID, quizID int64) (domain.QuizProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	progress := domain.QuizProgress{Questions: []domain.QuestionProgress{}}
	if u, ok := s.users[userID]; ok {
		progress.CurrentStars = u.stars
		progress.CurrentGems = u.gems
	}
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return progress, domain.ErrQuizNotFound
	}
	if subject, ok := s.subjects[quiz.SubjectID]; ok {
		progress.Subject = subject.Title
	}
	if summary, ok := s.summaries[attemptKey{userID, quizID}]; ok && summary.Completed {
		progress.Completed = true
		progress.Score = summary.Score
		progress.ScorePercent = summary.ScorePercent
	}

	for _, q := range s.sortedQuizQuestions(quizID) {
		qp := domain.QuestionProgress{
			QuestionID:      q.ID,
			Type:            q.Type,
			Text:            q.Text,
			Options:         q.Options,
			StarsReward:     q.StarsReward,
			CorrectOptionID: q.CorrectOptionID,
		}
		if rec, ok := s.answers[answerKey{userID, quizID, q.ID}]; ok && rec.selectedOptionID != nil {
			qp.Answered = true
			qp.SelectedOptionID = rec.selectedOptionID
			correct := rec.isCorrect
			qp.IsCorrect = &correct
		}
		progress.Questions = append(progress.Questions, qp)
	}
	return progress, nil
}

// HomeOverview builds the subject overview payload for a user.
func (s *Store) HomeOverview(_ context.Context, userID int64) (domain.HomeOverview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.HomeOverview{}, domain.ErrUserNotFound
	}
	overview := domain.HomeOverview{
		Username: u.username,
		Stars:    u.stars,
		Gems:     u.gems,
		Subjects: []domain.SubjectOverview{},
	}

	for _, subject := range s.sortedSubjects() {
		entry := domain.SubjectOverview{ID: subject.ID, Title: subject.Title, Quizzes: []domain.QuizStatus{}}
		for _, quiz := range s.sortedSubjectQuizzes(subject.ID) {
			status := domain.QuizStatus{ID: quiz.ID, Title: quiz.Title}
			if summary, ok := s.summaries[attemptKey{userID, quiz.ID}]; ok {
				status.Completed = summary.Completed
				status.ScorePercent = summary.ScorePercent
			}
			entry.Quizzes = append(entry.Quizzes, status)
		}
		overview.Subjects = append(overview.Subjects, entry)
	}
	return overview, nil
}

func (s *Store) sortedSubjects() []domain.Subject {
	subjects := make([]domain.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		subjects = append(subjects, subject)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects
}

func (s *Store) sortedSubjectQuizzes(subjectID int64) []domain.Quiz {
	var quizzes []domain.Quiz
	for _, quiz := range s.quizzes {
		if quiz.SubjectID == subjectID {
			quizzes = append(quizzes, quiz)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes
}

func (s *Store) sortedQuizQuestions(quizID int64) []domain.Question {
	var questions []domain.Question
	for _, q := range s.questions {
		if q.QuizID == quizID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions
}
