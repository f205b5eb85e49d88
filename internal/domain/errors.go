package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when the referenced user has no balance row.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question ID is invalid or does not
	// belong to the quiz it was submitted under.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSubjectNotFound indicates a subject ID is invalid.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrDuplicateAnswer guards the answer-once invariant at the store
	// level: an answered record already exists for the triple.
	ErrDuplicateAnswer = errors.New("answer already recorded")
	// ErrNoAnswers is returned when finalization finds no recorded answers.
	ErrNoAnswers = errors.New("no answers recorded for quiz")
	// ErrUserPassed rejects a reset of an already-passed attempt.
	ErrUserPassed = errors.New("attempt already passed")
	// ErrInvalidPackage is returned for an unknown star package name.
	ErrInvalidPackage = errors.New("invalid star package")
	// ErrStorageTransient marks a timed-out or contended storage operation.
	// The mutation did not happen and the call is safe to retry.
	ErrStorageTransient = errors.New("storage busy, retry")
)

// AlreadyAnsweredError rejects a duplicate submission. It carries the
// correct option so the client can show the answer without a second scoring.
type AlreadyAnsweredError struct {
	CorrectOptionID int64
}

func (e *AlreadyAnsweredError) Error() string {
	return fmt.Sprintf("question already answered (correct option %d)", e.CorrectOptionID)
}

// NotReadyError rejects a wrong answer attempted at zero stars. Nothing is
// recorded; the question stays open and can be resubmitted later.
type NotReadyError struct {
	CurrentStars int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("not enough stars to attempt (current %d)", e.CurrentStars)
}

// AlreadyCompletedError rejects re-finalization of a passed attempt,
// returning the stored outcome.
type AlreadyCompletedError struct {
	ScorePercent int
	GemsAwarded  int
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("quiz already completed (%d%%, %d gems)", e.ScorePercent, e.GemsAwarded)
}

// InsufficientGemsError rejects a purchase the user cannot afford and
// reports the unchanged balances.
type InsufficientGemsError struct {
	Stars int
	Gems  int
}

func (e *InsufficientGemsError) Error() string {
	return fmt.Sprintf("not enough gems (have %d)", e.Gems)
}
