package models

// NormalizedTask is the AI's cleaned-up view of a submitted task, used to
// route the stateless processing endpoint between quiz and help.
type NormalizedTask struct {
	NormalizedTitle       string   `json:"normalizedTitle"`
	NormalizedDescription string   `json:"normalizedDescription"`
	Category              string   `json:"category"`
	Keywords              []string `json:"keywords"`
	Complexity            int      `json:"complexity"` // 1-10
	NextAgent             string   `json:"nextAgent"`  // "QuizAgent" or "HelpAgent"
}
