package domain

// QuestionInput is the admin-facing shape for creating or replacing a
// question: option texts plus the index of the correct one. Option rows and
// the correct option id are assigned by the store.
type QuestionInput struct {
	QuizID             int64    `json:"quizId"`
	Text               string   `json:"text"`
	Type               string   `json:"type"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	StarsReward        int      `json:"starsReward"`
}
