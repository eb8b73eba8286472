package services

import (
	"context"

	"taskpilot/internal/models"
	"taskpilot/internal/store"
	"taskpilot/internal/utils"
)

// DocumentService produces downloadable reports and keeps them in the task
// store for the session.
type DocumentService struct {
	store *store.TaskStore
	ai    *AIService
}

// NewDocumentService creates a new document service
func NewDocumentService(taskStore *store.TaskStore, ai *AIService) *DocumentService {
	return &DocumentService{store: taskStore, ai: ai}
}

// GenerateSpreadsheet builds a CSV productivity report over the given tasks
// and records it as a generated document. Generation never fails outright:
// an unreachable AI yields the error-report CSV, which is still recorded.
func (s *DocumentService) GenerateSpreadsheet(ctx context.Context, tasks []models.Task, profile models.UserProfile) models.GeneratedDocument {
	title, content := s.ai.GenerateSpreadsheet(ctx, tasks, profile)

	doc := models.GeneratedDocument{
		ID:      utils.GenerateUUID(),
		Title:   title,
		Type:    models.DocumentCSV,
		Date:    utils.FormatDate(s.ai.Now()),
		Content: content,
	}
	s.store.AddDocument(doc)
	return doc
}
