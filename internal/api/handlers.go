package api

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"taskpilot/internal/models"
	"taskpilot/internal/services"
	"taskpilot/internal/store"
	"taskpilot/internal/utils"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store               *store.TaskStore
	aiService           *services.AIService
	verificationService *services.VerificationService
	documentService     *services.DocumentService
	memoryService       *services.MemoryService

	// Now is the clock used for create-time validation, overridable in tests
	Now func() time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	taskStore *store.TaskStore,
	aiService *services.AIService,
	verificationService *services.VerificationService,
	documentService *services.DocumentService,
	memoryService *services.MemoryService,
) *Handlers {
	return &Handlers{
		store:               taskStore,
		aiService:           aiService,
		verificationService: verificationService,
		documentService:     documentService,
		memoryService:       memoryService,
		Now:                 time.Now,
	}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ListTasksHandler handles GET /tasks
func (h *Handlers) ListTasksHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.List())
}

// SaveTasksHandler handles POST /save-tasks, replacing the whole collection
func (h *Handlers) SaveTasksHandler(c *gin.Context) {
	var tasks []models.Task
	if err := c.ShouldBindJSON(&tasks); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.store.ReplaceAll(tasks)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetProfileHandler handles GET /profile
func (h *Handlers) GetProfileHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Profile())
}

// SaveProfileHandler handles POST /save-profile
func (h *Handlers) SaveProfileHandler(c *gin.Context) {
	var profile models.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if profile.Email != "" && !emailPattern.MatchString(profile.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email address"})
		return
	}

	h.store.SetProfile(profile)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateTaskHandler handles POST /api/tasks
func (h *Handlers) CreateTaskHandler(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.ValidCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}
	if !models.ValidAccessLevel(req.AIAccess) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown AI access level"})
		return
	}

	due, err := utils.CombineDateTime(req.DueDate, req.DueTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if due.Before(h.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "due date/time is in the past"})
		return
	}

	reminder := req.Reminder
	if reminder == "" {
		reminder = models.ReminderThirtyMinBefore
	}

	task := models.Task{
		ID:          utils.GenerateUUID(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
		AIAccess:    req.AIAccess,
		Reminder:    reminder,
		Status:      models.TaskStatusTodo,
		Order:       len(h.store.List()),
	}
	h.store.Upsert(task)
	c.JSON(http.StatusCreated, task)
}

// StartTaskHandler handles POST /api/tasks/:id/start
func (h *Handlers) StartTaskHandler(c *gin.Context) {
	task, err := h.verificationService.StartTask(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTaskHandler handles DELETE /api/tasks/:id
func (h *Handlers) DeleteTaskHandler(c *gin.Context) {
	if _, err := h.store.Get(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.verificationService.DeleteTask(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ExtendDeadlineHandler handles POST /api/tasks/:id/extend
func (h *Handlers) ExtendDeadlineHandler(c *gin.Context) {
	var req models.ExtendDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.verificationService.ExtendDeadline(c.Param("id"), req.Hours, req.Days)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

// BeginCheckInHandler handles POST /api/tasks/:id/check-in
func (h *Handlers) BeginCheckInHandler(c *gin.Context) {
	session, err := h.verificationService.BeginCheckIn(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetCheckInHandler handles GET /api/check-in
func (h *Handlers) GetCheckInHandler(c *gin.Context) {
	session := h.verificationService.Session()
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"open": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": true, "session": session})
}

// RespondCheckInHandler handles POST /api/check-in/respond
func (h *Handlers) RespondCheckInHandler(c *gin.Context) {
	var req models.CheckInRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.verificationService.Respond(c.Request.Context(), req.Completed, req.ContextURL)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	h.checkInResult(c, session)
}

// ProvideContextURLHandler handles POST /api/check-in/context-url.
// An empty URL abandons the check-in.
func (h *Handlers) ProvideContextURLHandler(c *gin.Context) {
	var req models.ContextURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.verificationService.ProvideContextURL(c.Request.Context(), req.ContextURL)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"stage": "cancelled"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// SubmitNamesHandler handles POST /api/check-in/names
func (h *Handlers) SubmitNamesHandler(c *gin.Context) {
	var req models.NetworkingNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.verificationService.SubmitNetworkingNames(c.Request.Context(), req.Names)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	h.checkInResult(c, session)
}

// SubmitQuizAnswersHandler handles POST /api/check-in/quiz
func (h *Handlers) SubmitQuizAnswersHandler(c *gin.Context) {
	var req models.QuizAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, result, err := h.verificationService.SubmitQuizAnswers(req.Answers)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"stage": "completed", "result": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": session.Stage, "result": result, "session": session})
}

// TryLaterHandler handles POST /api/check-in/try-later
func (h *Handlers) TryLaterHandler(c *gin.Context) {
	if err := h.verificationService.TryLater(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RequestHelpHandler handles POST /api/check-in/help
func (h *Handlers) RequestHelpHandler(c *gin.Context) {
	session, err := h.verificationService.RequestHelp(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// ReadyToVerifyHandler handles POST /api/check-in/ready
func (h *Handlers) ReadyToVerifyHandler(c *gin.Context) {
	session, err := h.verificationService.ReadyToVerify()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// MoreHelpHandler handles POST /api/check-in/more-help
func (h *Handlers) MoreHelpHandler(c *gin.Context) {
	session, err := h.verificationService.MoreHelp(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// CancelCheckInHandler handles POST /api/check-in/cancel
func (h *Handlers) CancelCheckInHandler(c *gin.Context) {
	if err := h.verificationService.Cancel(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// checkInResult writes either the updated session or the completed-task
// terminal response
func (h *Handlers) checkInResult(c *gin.Context, session *services.CheckInSession) {
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"stage": "completed"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// ProcessTaskHandler handles POST /process-task: the stateless
// normalize-then-route contract. The response carries a quiz or help
// payload selected by the stage discriminator.
func (h *Handlers) ProcessTaskHandler(c *gin.Context) {
	var req models.ProcessTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	normalized := h.aiService.NormalizeTask(ctx, req.Title, req.Description, req.Category)

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}
	profile := h.store.Profile()
	if req.UserProfile != nil {
		profile = *req.UserProfile
	}

	if normalized.NextAgent == "HelpAgent" {
		help := h.aiService.GenerateHelp(ctx, task, profile)
		c.JSON(http.StatusOK, models.ProcessTaskResponse{
			Stage:      "help",
			Normalized: &normalized,
			Help:       &help,
		})
		return
	}

	questions := h.aiService.GenerateQuiz(ctx, task, req.ContextURL)
	quiz := models.WireQuizFromQuestions(questions)
	c.JSON(http.StatusOK, models.ProcessTaskResponse{
		Stage:      "quiz",
		Normalized: &normalized,
		Quiz:       &quiz,
	})
}

// SubmitQuizHandler handles POST /submit-quiz: stateless grading of a quiz
// shipped back by the client. A fail comes with help content attached.
func (h *Handlers) SubmitQuizHandler(c *gin.Context) {
	var req models.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := services.GradeQuiz(req.Quiz.ToQuizQuestions(), req.Answers)
	if result.Passed {
		title := ""
		if req.Normalized != nil {
			title = req.Normalized.NormalizedTitle
		}
		memory := h.memoryService.UpdateFromQuiz(title, result)
		c.JSON(http.StatusOK, gin.H{"stage": "memory", "result": result, "memory": memory})
		return
	}

	task := models.Task{}
	if req.Normalized != nil {
		task.Title = req.Normalized.NormalizedTitle
		task.Description = req.Normalized.NormalizedDescription
		task.Category = models.TaskCategory(req.Normalized.Category)
	}
	help := h.aiService.GenerateHelp(c.Request.Context(), task, h.store.Profile())
	c.JSON(http.StatusOK, gin.H{"stage": "help", "result": result, "help": help})
}

// VerifyNetworkingHandler handles POST /verify-networking
func (h *Handlers) VerifyNetworkingHandler(c *gin.Context) {
	var req models.VerifyNetworkingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verified := h.aiService.VerifyNetworkingNames(c.Request.Context(), req.Names, req.Task)
	c.JSON(http.StatusOK, models.VerifyNetworkingResponse{Verified: verified})
}

// GenerateSpreadsheetHandler handles POST /generate-spreadsheet. Tasks may
// be supplied in the body; with an empty body the store's tasks are used
// and the result is recorded as a document.
func (h *Handlers) GenerateSpreadsheetHandler(c *gin.Context) {
	var req models.SpreadsheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Tasks) > 0 {
		title, content := h.aiService.GenerateSpreadsheet(c.Request.Context(), req.Tasks, req.User)
		c.JSON(http.StatusOK, models.SpreadsheetResponse{Title: title, Content: content})
		return
	}

	doc := h.documentService.GenerateSpreadsheet(c.Request.Context(), h.store.List(), h.store.Profile())
	c.JSON(http.StatusOK, models.SpreadsheetResponse{Title: doc.Title, Content: doc.Content})
}

// ListDocumentsHandler handles GET /api/documents
func (h *Handlers) ListDocumentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Documents())
}

// GetMemoryHandler handles GET /api/memory: the quiz history and per-topic
// mastery scores
func (h *Handlers) GetMemoryHandler(c *gin.Context) {
	snapshot := h.memoryService.Snapshot()
	c.JSON(http.StatusOK, gin.H{"history": snapshot.History, "skills": snapshot.Skills})
}

// GetRecommendationsHandler handles GET /api/recommendations
func (h *Handlers) GetRecommendationsHandler(c *gin.Context) {
	recommendations := h.memoryService.Recommend(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"recommendations": recommendations})
}
