package domain

import "time"

// Balance is the currency state of a single user. Stars are the consumable
// attempt currency, gems the earned one; neither is ever negative.
type Balance struct {
	UserID int64 `json:"userId"`
	Stars  int   `json:"stars"`
	Gems   int   `json:"gems"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ/true-false question with exactly one correct option.
type Question struct {
	ID              int64    `json:"id"`
	QuizID          int64    `json:"quizId"`
	Text            string   `json:"text"`
	Type            string   `json:"type"`
	Options         []Option `json:"options"`
	CorrectOptionID int64    `json:"correctOptionId"`
	StarsReward     int      `json:"starsReward"` // defaults to 1 if zero
}

// QuestionKey is the scoring view of a question: just enough to grade an
// answer without loading the full content row.
type QuestionKey struct {
	QuestionID      int64
	CorrectOptionID int64
	StarsReward     int
}

// RewardWeight returns the star weight of the question, defaulting to 1.
func (k QuestionKey) RewardWeight() int {
	if k.StarsReward > 0 {
		return k.StarsReward
	}
	return 1
}

// AnswerRecord is one user's submission for one question of one quiz.
// At most one answered record exists per (user, quiz, question); a reset
// nulls the selection fields without deleting the row.
type AnswerRecord struct {
	UserID           int64
	QuizID           int64
	QuestionID       int64
	SelectedOptionID int64
	IsCorrect        bool
	AnsweredAt       time.Time
}

// AnswerScore is the aggregation view of an answered record.
type AnswerScore struct {
	IsCorrect    bool
	RewardWeight int
}

// AttemptSummary is the persisted outcome of one (user, quiz) attempt cycle.
// While Completed is true the summary is terminal; a failed summary can be
// overwritten by a later finalization after a reset.
type AttemptSummary struct {
	UserID       int64
	QuizID       int64
	Completed    bool
	Score        int
	ScorePercent int
	GemsAwarded  int
	CompletedAt  *time.Time
}

// Subject groups quizzes for the catalog.
type Subject struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Quiz is a titled question set with a fixed gem reward for passing.
type Quiz struct {
	ID         int64  `json:"id"`
	SubjectID  int64  `json:"subjectId"`
	Title      string `json:"title"`
	GemsReward int    `json:"gemsReward"`
}

// SubmissionResult reports the outcome of one accepted answer.
type SubmissionResult struct {
	IsCorrect        bool  `json:"isCorrect"`
	CorrectOptionID  int64 `json:"correctOptionId"`
	SelectedOptionID int64 `json:"selectedOptionId"`
	StarsDelta       int   `json:"starsDelta"`
	CurrentStars     int   `json:"currentStars"`
}

// FinalizationResult reports the outcome of finishing a quiz.
type FinalizationResult struct {
	Score        int  `json:"score"`
	ScorePercent int  `json:"scorePercent"`
	Passed       bool `json:"passed"`
	GemsAwarded  int  `json:"gemsAwarded"`
}

// PurchaseResult reports the balances after buying a star package.
type PurchaseResult struct {
	Package string `json:"purchasedPackage"`
	Stars   int    `json:"stars"`
	Gems    int    `json:"gems"`
}

// QuestionProgress is one question of a quiz together with the user's
// previous answer, if any. CorrectOptionID is included for review mode.
type QuestionProgress struct {
	QuestionID       int64    `json:"questionId"`
	Type             string   `json:"type"`
	Text             string   `json:"text"`
	Options          []Option `json:"options"`
	StarsReward      int      `json:"starsReward"`
	Answered         bool     `json:"answered"`
	SelectedOptionID *int64   `json:"selectedOptionId"`
	IsCorrect        *bool    `json:"isCorrect"`
	CorrectOptionID  int64    `json:"correctOptionId"`
}

// QuizProgress combines quiz content, prior answers, the attempt summary,
// and the user's current balances into one client payload.
type QuizProgress struct {
	Subject      string             `json:"subject"`
	Completed    bool               `json:"completed"`
	Score        int                `json:"score"`
	ScorePercent int                `json:"scorePercent"`
	CurrentStars int                `json:"currentStars"`
	CurrentGems  int                `json:"currentGems"`
	Questions    []QuestionProgress `json:"questions"`
}

// QuizStatus is the per-quiz completion line of the home overview.
type QuizStatus struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Completed    bool   `json:"completed"`
	ScorePercent int    `json:"scorePercent"`
}

// SubjectOverview lists a subject's quizzes with the user's progress.
type SubjectOverview struct {
	ID      int64        `json:"id"`
	Title   string       `json:"title"`
	Quizzes []QuizStatus `json:"quizzes"`
}

// HomeOverview is the landing payload: balances plus the full catalog.
type HomeOverview struct {
	Username string            `json:"username"`
	Stars    int               `json:"stars"`
	Gems     int               `json:"gems"`
	Subjects []SubjectOverview `json:"subjects"`
}
