package models

import "time"

// QuizRecord is one graded quiz logged into the mastery history
type QuizRecord struct {
	Title     string    `json:"title" bson:"title"`
	Score     float64   `json:"score" bson:"score"`
	Passed    bool      `json:"passed" bson:"passed"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// MemoryUpdate is the outcome of recording a quiz against the mastery
// tracker. NextAgent mirrors the routing discriminator used elsewhere on
// the wire: "None" after a pass, "HelpAgent" after a fail.
type MemoryUpdate struct {
	Mastery   float64 `json:"mastery"`
	Passed    bool    `json:"passed"`
	NextAgent string  `json:"nextAgent"`
}

// TaskRecommendation is a suggested next task derived from mastery scores
type TaskRecommendation struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}
