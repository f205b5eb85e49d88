package postgres

import (
	"time"

	"github.com/uptrace/bun"
)

type UserRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             int64      `bun:"id,pk,autoincrement"`
	Username       string     `bun:"username,notnull"`
	IsAdmin        bool       `bun:"is_admin,notnull"`
	Stars          int        `bun:"stars,notnull"`
	Gems           int        `bun:"gems,notnull"`
	LastStarRefill *time.Time `bun:"last_star_refill"`
}

type SubjectRow struct {
	bun.BaseModel `bun:"table:subjects,alias:s"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Title string `bun:"title,notnull"`
}

type QuizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID         int64  `bun:"id,pk,autoincrement"`
	SubjectID  int64  `bun:"subject_id,notnull"`
	Title      string `bun:"title,notnull"`
	GemsReward int    `bun:"gems_reward,notnull"`
}

type QuestionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID              int64  `bun:"id,pk,autoincrement"`
	QuizID          int64  `bun:"quiz_id,notnull"`
	QuestionText    string `bun:"question_text,notnull"`
	QuestionType    string `bun:"question_type,notnull"`
	CorrectOptionID *int64 `bun:"correct_option_id"`
	StarsReward     int    `bun:"stars_reward,notnull"`
}

type OptionRow struct {
	bun.BaseModel `bun:"table:question_options,alias:opt"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	OptionText string `bun:"option_text,notnull"`
}

// UserAnswerRow keeps one row per (user, quiz, question). A reset nulls the
// selection fields instead of deleting the row, preserving history.
type UserAnswerRow struct {
	bun.BaseModel `bun:"table:user_answers,alias:ua"`

	ID               int64      `bun:"id,pk,autoincrement"`
	UserID           int64      `bun:"user_id,notnull"`
	QuizID           int64      `bun:"quiz_id,notnull"`
	QuestionID       int64      `bun:"question_id,notnull"`
	SelectedOptionID *int64     `bun:"selected_option_id"`
	IsCorrect        *bool      `bun:"is_correct"`
	AnsweredAt       *time.Time `bun:"answered_at"`
}

type UserQuizRow struct {
	bun.BaseModel `bun:"table:user_quizzes,alias:uq"`

	ID           int64      `bun:"id,pk,autoincrement"`
	UserID       int64      `bun:"user_id,notnull"`
	QuizID       int64      `bun:"quiz_id,notnull"`
	Completed    bool       `bun:"completed,notnull"`
	Score        int        `bun:"score,notnull"`
	ScorePercent int        `bun:"score_percent,notnull"`
	GemsAwarded  int        `bun:"gems_awarded,notnull"`
	CompletedAt  *time.Time `bun:"completed_at"`
}
