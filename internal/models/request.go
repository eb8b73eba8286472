package models

// ProcessTaskRequest is the body of POST /process-task
type ProcessTaskRequest struct {
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description"`
	Category    TaskCategory `json:"category"`
	ContextURL  string       `json:"contextUrl,omitempty"`
	UserProfile *UserProfile `json:"userProfile,omitempty"`
}

// WireQuizQuestion is the quiz question shape on the HTTP boundary.
// Internally it maps to QuizQuestion.
type WireQuizQuestion struct {
	Q       string   `json:"q"`
	Choices []string `json:"choices"`
	Answer  int      `json:"answer"`
}

// WireQuiz wraps the questions array on the wire
type WireQuiz struct {
	Questions []WireQuizQuestion `json:"questions"`
}

// ToQuizQuestions maps the wire shape to the internal shape
func (w WireQuiz) ToQuizQuestions() []QuizQuestion {
	questions := make([]QuizQuestion, 0, len(w.Questions))
	for _, q := range w.Questions {
		questions = append(questions, QuizQuestion{
			Question:     q.Q,
			Options:      q.Choices,
			CorrectIndex: q.Answer,
		})
	}
	return questions
}

// WireQuizFromQuestions maps internal questions to the wire shape
func WireQuizFromQuestions(questions []QuizQuestion) WireQuiz {
	wire := WireQuiz{Questions: make([]WireQuizQuestion, 0, len(questions))}
	for _, q := range questions {
		wire.Questions = append(wire.Questions, WireQuizQuestion{
			Q:       q.Question,
			Choices: q.Options,
			Answer:  q.CorrectIndex,
		})
	}
	return wire
}

// ProcessTaskResponse carries either a quiz or help payload, selected by Stage
type ProcessTaskResponse struct {
	Stage      string          `json:"stage"` // "quiz" or "help"
	Normalized *NormalizedTask `json:"normalized,omitempty"`
	Quiz       *WireQuiz       `json:"quiz,omitempty"`
	Help       *HelpContent    `json:"help,omitempty"`
}

// SubmitQuizRequest is the body of POST /submit-quiz
type SubmitQuizRequest struct {
	Normalized *NormalizedTask `json:"normalized,omitempty"`
	Quiz       WireQuiz        `json:"quiz" binding:"required"`
	Answers    []int           `json:"answers" binding:"required"`
}

// VerifyNetworkingRequest is the body of POST /verify-networking
type VerifyNetworkingRequest struct {
	Names []string `json:"names" binding:"required"`
	Task  Task     `json:"task"`
}

// VerifyNetworkingResponse is the response of POST /verify-networking
type VerifyNetworkingResponse struct {
	Verified bool `json:"verified"`
}

// SpreadsheetRequest is the body of POST /generate-spreadsheet
type SpreadsheetRequest struct {
	Tasks []Task      `json:"tasks"`
	User  UserProfile `json:"user"`
}

// SpreadsheetResponse is the response of POST /generate-spreadsheet
type SpreadsheetResponse struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateTaskRequest is the body of POST /api/tasks
type CreateTaskRequest struct {
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	Category    TaskCategory  `json:"category" binding:"required"`
	DueDate     string        `json:"dueDate" binding:"required"`
	DueTime     string        `json:"dueTime" binding:"required"`
	AIAccess    AIAccessLevel `json:"aiAccess" binding:"required"`
	Reminder    ReminderTime  `json:"reminder"`
}

// CheckInRespondRequest answers the "have you completed this task" dialog.
// ContextURL optionally grounds the quiz in a studied resource.
type CheckInRespondRequest struct {
	Completed  bool   `json:"completed"`
	ContextURL string `json:"contextUrl,omitempty"`
}

// ContextURLRequest supplies the studied-resource URL for Research check-ins.
// An empty URL cancels the check-in.
type ContextURLRequest struct {
	ContextURL string `json:"contextUrl"`
}

// NetworkingNamesRequest supplies the contacted names for a Networking check-in
type NetworkingNamesRequest struct {
	Names []string `json:"names" binding:"required"`
}

// QuizAnswersRequest supplies the selected option index per question, in order
type QuizAnswersRequest struct {
	Answers []int `json:"answers" binding:"required"`
}

// ExtendDeadlineRequest extends a task's due timestamp additively
type ExtendDeadlineRequest struct {
	Hours int `json:"hours"`
	Days  int `json:"days"`
}
