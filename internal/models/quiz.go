package models

// QuizQuestion is a single multiple-choice question. Created fresh per
// check-in attempt, discarded after scoring, never persisted.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// QuizAnswerDetail records how a single question was answered
type QuizAnswerDetail struct {
	Question      string `json:"question"`
	UserAnswer    int    `json:"userAnswer"`
	CorrectAnswer int    `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
}

// QuizResult is the outcome of grading a quiz
type QuizResult struct {
	Correct int                `json:"correct"`
	Total   int                `json:"total"`
	Score   float64            `json:"score"`
	Passed  bool               `json:"passed"`
	Details []QuizAnswerDetail `json:"details"`
}
