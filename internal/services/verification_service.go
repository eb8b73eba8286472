package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskpilot/internal/models"
	"taskpilot/internal/store"
	"taskpilot/internal/utils"
)

// QuizPassThreshold is the fraction of correct answers required to complete
// a task through the quiz path.
const QuizPassThreshold = 0.8

// Verifier is the remote client surface the lifecycle depends on. AIService
// implements it; tests substitute their own.
type Verifier interface {
	GenerateQuiz(ctx context.Context, task models.Task, contextURL string) []models.QuizQuestion
	GenerateHelp(ctx context.Context, task models.Task, profile models.UserProfile) models.HelpContent
	VerifyNetworkingNames(ctx context.Context, names []string, task models.Task) bool
}

// MasteryRecorder logs passed quizzes into the user's mastery history.
// MemoryService implements it.
type MasteryRecorder interface {
	UpdateFromQuiz(title string, result models.QuizResult) models.MemoryUpdate
}

// CheckInStage is where an open check-in dialog currently sits
type CheckInStage string

const (
	// StageConfirm shows the "have you completed this task?" dialog
	StageConfirm CheckInStage = "confirm"
	// StageCollectURL waits for the studied-resource URL (Research tasks)
	StageCollectURL CheckInStage = "collect-url"
	// StageCollectNames waits for contacted names (Networking tasks)
	StageCollectNames CheckInStage = "collect-names"
	// StageQuiz presents the generated quiz
	StageQuiz CheckInStage = "quiz"
	// StageQuizResult waits for the user's choice after a failed quiz
	StageQuizResult CheckInStage = "quiz-result"
	// StageHelp shows help content
	StageHelp CheckInStage = "help"
)

// CheckInSession is the state of the one open check-in dialog. At most one
// session exists at a time, which is what keeps a single modal on screen.
type CheckInSession struct {
	TaskID    string                `json:"taskId"`
	Stage     CheckInStage          `json:"stage"`
	Questions []models.QuizQuestion `json:"questions,omitempty"`
	Result    *models.QuizResult    `json:"result,omitempty"`
	Help      *models.HelpContent   `json:"help,omitempty"`
}

// VerificationService orchestrates the check-in dialog flow and applies the
// resulting status transitions to the task store.
type VerificationService struct {
	store    *store.TaskStore
	verifier Verifier
	recorder MasteryRecorder

	mutex   sync.Mutex
	session *CheckInSession

	// Now is the clock used for completedAt stamps, overridable in tests
	Now func() time.Time
}

// NewVerificationService creates a new verification service
func NewVerificationService(taskStore *store.TaskStore, verifier Verifier) *VerificationService {
	return &VerificationService{
		store:    taskStore,
		verifier: verifier,
		Now:      time.Now,
	}
}

// SetMasteryRecorder installs the optional mastery tracker. Call before
// the service is shared.
func (s *VerificationService) SetMasteryRecorder(recorder MasteryRecorder) {
	s.recorder = recorder
}

// GradeQuiz scores answers against questions with strict index equality and
// no partial credit. A zero-question quiz grades 0/0 and fails: an empty or
// malformed quiz must never pass a task by default.
func GradeQuiz(questions []models.QuizQuestion, answers []int) models.QuizResult {
	result := models.QuizResult{Total: len(questions)}

	for i, q := range questions {
		userAnswer := -1
		if i < len(answers) {
			userAnswer = answers[i]
		}
		isCorrect := userAnswer == q.CorrectIndex
		if isCorrect {
			result.Correct++
		}
		result.Details = append(result.Details, models.QuizAnswerDetail{
			Question:      q.Question,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectIndex,
			IsCorrect:     isCorrect,
		})
	}

	if result.Total > 0 {
		result.Score = float64(result.Correct) / float64(result.Total)
	}
	result.Passed = result.Total > 0 && result.Score >= QuizPassThreshold
	return result
}

// StartTask moves a Todo task into In Progress
func (s *VerificationService) StartTask(taskID string) (models.Task, error) {
	task, err := s.store.Get(taskID)
	if err != nil {
		return models.Task{}, err
	}
	if task.Status != models.TaskStatusTodo {
		return models.Task{}, fmt.Errorf("task %s is not in Todo (status: %s)", taskID, task.Status)
	}

	task.Status = models.TaskStatusInProgress
	s.store.Upsert(task)
	return task, nil
}

// Session returns a copy of the open check-in session, or nil
func (s *VerificationService) Session() *CheckInSession {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.session == nil {
		return nil
	}
	copied := *s.session
	return &copied
}

// BeginCheckIn opens the confirmation dialog for a task. Only one dialog
// can be open; the task must be In Progress or Failed Verification.
func (s *VerificationService) BeginCheckIn(taskID string) (*CheckInSession, error) {
	task, err := s.store.Get(taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsActive() {
		return nil, fmt.Errorf("task %s cannot be checked in (status: %s)", taskID, task.Status)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.session != nil {
		return nil, fmt.Errorf("a check-in dialog is already open for task %s", s.session.TaskID)
	}

	s.session = &CheckInSession{TaskID: taskID, Stage: StageConfirm}
	copied := *s.session
	return &copied, nil
}

// beginStep validates the current dialog stage and returns copies of the
// session and its task with the mutex released, so the caller can issue a
// remote call without blocking the rest of the lifecycle.
func (s *VerificationService) beginStep(stage CheckInStage, what string) (CheckInSession, models.Task, error) {
	s.mutex.Lock()
	if s.session == nil || s.session.Stage != stage {
		s.mutex.Unlock()
		return CheckInSession{}, models.Task{}, fmt.Errorf("no %s", what)
	}
	sess := *s.session
	s.mutex.Unlock()

	task, err := s.store.Get(sess.TaskID)
	if err != nil {
		s.clearSession(sess.TaskID)
		return CheckInSession{}, models.Task{}, err
	}
	return sess, task, nil
}

// commitStep re-acquires the mutex and applies fn only if the dialog is
// still the one captured by beginStep, at the same stage. A dialog that was
// cancelled or advanced while a remote call was in flight commits nothing.
func (s *VerificationService) commitStep(sess CheckInSession, fn func() error) (*CheckInSession, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.session == nil || s.session.TaskID != sess.TaskID || s.session.Stage != sess.Stage {
		return nil, fmt.Errorf("check-in changed while the request was in flight")
	}
	if err := fn(); err != nil {
		return nil, err
	}
	if s.session == nil {
		return nil, nil
	}
	copied := *s.session
	return &copied, nil
}

// clearSession closes the dialog if it still belongs to the given task
func (s *VerificationService) clearSession(taskID string) {
	s.mutex.Lock()
	if s.session != nil && s.session.TaskID == taskID {
		s.session = nil
	}
	s.mutex.Unlock()
}

// Respond answers the confirmation dialog. completed=false opens the help
// flow without touching the task status. completed=true branches on the
// task's AI access level and category; contextURL is an optional studied
// resource to ground the quiz (Research tasks collect it in a dedicated
// stage instead). A nil returned session means the check-in finished and
// the task was completed.
func (s *VerificationService) Respond(ctx context.Context, completed bool, contextURL string) (*CheckInSession, error) {
	sess, task, err := s.beginStep(StageConfirm, "check-in awaiting confirmation")
	if err != nil {
		return nil, err
	}

	if !completed {
		return s.openHelp(ctx, sess, task)
	}

	switch {
	case task.AIAccess == models.AccessStatusOnly:
		// Trust path: no quiz, no claim check
		return s.commitStep(sess, func() error {
			return s.completeAndClose(sess.TaskID)
		})

	case task.Category == models.CategoryNetworking:
		return s.commitStep(sess, func() error {
			s.session.Stage = StageCollectNames
			return nil
		})

	case task.Category == models.CategoryResearch:
		return s.commitStep(sess, func() error {
			s.session.Stage = StageCollectURL
			return nil
		})
	}

	questions := s.verifier.GenerateQuiz(ctx, task, contextURL)
	return s.commitStep(sess, func() error {
		s.session.Stage = StageQuiz
		s.session.Questions = questions
		return nil
	})
}

// ProvideContextURL supplies the studied-resource URL for a Research
// check-in. An empty URL abandons the check-in with no state change.
func (s *VerificationService) ProvideContextURL(ctx context.Context, contextURL string) (*CheckInSession, error) {
	sess, task, err := s.beginStep(StageCollectURL, "check-in awaiting a context URL")
	if err != nil {
		return nil, err
	}

	if contextURL == "" {
		return s.commitStep(sess, func() error {
			s.session = nil
			return nil
		})
	}

	questions := s.verifier.GenerateQuiz(ctx, task, contextURL)
	return s.commitStep(sess, func() error {
		s.session.Stage = StageQuiz
		s.session.Questions = questions
		return nil
	})
}

// SubmitNetworkingNames verifies the contacted names for a Networking
// check-in. Verified names complete the task; rejected names fail
// verification and automatically open the help flow.
func (s *VerificationService) SubmitNetworkingNames(ctx context.Context, names []string) (*CheckInSession, error) {
	sess, task, err := s.beginStep(StageCollectNames, "check-in awaiting contact names")
	if err != nil {
		return nil, err
	}

	if s.verifier.VerifyNetworkingNames(ctx, names, task) {
		return s.commitStep(sess, func() error {
			return s.completeAndClose(sess.TaskID)
		})
	}

	help := s.verifier.GenerateHelp(ctx, task, s.store.Profile())
	return s.commitStep(sess, func() error {
		current, err := s.store.Get(sess.TaskID)
		if err != nil {
			s.session = nil
			return err
		}
		s.failVerification(current)
		s.session.Stage = StageHelp
		s.session.Help = &help
		return nil
	})
}

// SubmitQuizAnswers grades the quiz. A pass completes the task and closes
// the session. A fail moves to the quiz-result stage where the user picks
// "try later" or "help me finish".
func (s *VerificationService) SubmitQuizAnswers(answers []int) (*CheckInSession, *models.QuizResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.session == nil || s.session.Stage != StageQuiz {
		return nil, nil, fmt.Errorf("no quiz in progress")
	}

	task, err := s.store.Get(s.session.TaskID)
	if err != nil {
		s.session = nil
		return nil, nil, err
	}

	result := GradeQuiz(s.session.Questions, answers)
	if result.Passed {
		if err := s.completeTask(task); err != nil {
			return nil, nil, err
		}
		if s.recorder != nil {
			s.recorder.UpdateFromQuiz(task.Title, result)
		}
		s.session = nil
		return nil, &result, nil
	}

	s.session.Stage = StageQuizResult
	s.session.Result = &result
	copied := *s.session
	return &copied, &result, nil
}

// TryLater accepts a failed quiz: the task fails verification and the
// dialog closes. The task stays checkable indefinitely.
func (s *VerificationService) TryLater() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.session == nil || s.session.Stage != StageQuizResult {
		return fmt.Errorf("no failed quiz awaiting a choice")
	}

	task, err := s.store.Get(s.session.TaskID)
	if err != nil {
		s.session = nil
		return err
	}

	s.failVerification(task)
	s.session = nil
	return nil
}

// RequestHelp handles "help me finish this" after a failed quiz: the task
// fails verification and the help flow opens.
func (s *VerificationService) RequestHelp(ctx context.Context) (*CheckInSession, error) {
	sess, task, err := s.beginStep(StageQuizResult, "failed quiz awaiting a choice")
	if err != nil {
		return nil, err
	}

	help := s.verifier.GenerateHelp(ctx, task, s.store.Profile())
	return s.commitStep(sess, func() error {
		current, err := s.store.Get(sess.TaskID)
		if err != nil {
			s.session = nil
			return err
		}
		s.failVerification(current)
		s.session.Stage = StageHelp
		s.session.Help = &help
		return nil
	})
}

// ReadyToVerify closes the help view and re-enters the check-in
// confirmation for the same task
func (s *VerificationService) ReadyToVerify() (*CheckInSession, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.session == nil || s.session.Stage != StageHelp {
		return nil, fmt.Errorf("no help view open")
	}

	s.session = &CheckInSession{TaskID: s.session.TaskID, Stage: StageConfirm}
	copied := *s.session
	return &copied, nil
}

// MoreHelp regenerates help content for the same task without changing its
// status ("try something else")
func (s *VerificationService) MoreHelp(ctx context.Context) (*CheckInSession, error) {
	sess, task, err := s.beginStep(StageHelp, "help view open")
	if err != nil {
		return nil, err
	}
	return s.openHelp(ctx, sess, task)
}

// Cancel abandons an open dialog with no state change. Not allowed once a
// quiz has been graded: a failed quiz must resolve through TryLater or
// RequestHelp so the failure is recorded exactly once.
func (s *VerificationService) Cancel() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.session == nil {
		return fmt.Errorf("no check-in dialog open")
	}
	if s.session.Stage == StageQuizResult {
		return fmt.Errorf("failed quiz must be resolved with try-later or help")
	}

	s.session = nil
	return nil
}

// ExtendDeadline adds hours/days to the task's due timestamp. Purely
// additive; the status is untouched.
func (s *VerificationService) ExtendDeadline(taskID string, hours, days int) (models.Task, error) {
	if hours == 0 && days == 0 {
		return models.Task{}, fmt.Errorf("no extension duration given")
	}

	task, err := s.store.Get(taskID)
	if err != nil {
		return models.Task{}, err
	}

	due, err := utils.CombineDateTime(task.DueDate, task.DueTime)
	if err != nil {
		return models.Task{}, err
	}

	due = due.Add(time.Duration(hours) * time.Hour).AddDate(0, 0, days)
	task.DueDate, task.DueTime = utils.SplitDateTime(due)
	s.store.Upsert(task)
	return task, nil
}

// DeleteTask removes the task unconditionally and closes any dialog open
// for it. No undo.
func (s *VerificationService) DeleteTask(taskID string) {
	s.store.Remove(taskID)

	s.mutex.Lock()
	if s.session != nil && s.session.TaskID == taskID {
		s.session = nil
	}
	s.mutex.Unlock()
}

// completeTask stamps Completed exactly once. Completed is terminal and
// completedAt never changes afterwards.
func (s *VerificationService) completeTask(task models.Task) error {
	if task.Status == models.TaskStatusCompleted {
		return fmt.Errorf("task %s is already completed", task.ID)
	}

	now := s.Now()
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &now
	s.store.Upsert(task)
	return nil
}

// completeAndClose re-reads the task, completes it and closes the dialog.
// Caller holds the mutex via commitStep; the fresh read keeps a deadline
// extension made during a remote call from being clobbered.
func (s *VerificationService) completeAndClose(taskID string) error {
	task, err := s.store.Get(taskID)
	if err != nil {
		s.session = nil
		return err
	}
	if err := s.completeTask(task); err != nil {
		return err
	}
	s.session = nil
	return nil
}

// failVerification records one failed verification attempt
func (s *VerificationService) failVerification(task models.Task) models.Task {
	task.Status = models.TaskStatusFailedVerification
	task.VerificationFailedCount++
	s.store.Upsert(task)
	return task
}

// openHelp fetches help content with the mutex released, then moves the
// captured session to the help stage
func (s *VerificationService) openHelp(ctx context.Context, sess CheckInSession, task models.Task) (*CheckInSession, error) {
	help := s.verifier.GenerateHelp(ctx, task, s.store.Profile())
	return s.commitStep(sess, func() error {
		s.session.Stage = StageHelp
		s.session.Help = &help
		return nil
	})
}
