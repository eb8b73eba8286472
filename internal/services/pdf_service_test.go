package services

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"taskpilot/internal/models"
)

func TestTruncateTitle(t *testing.T) {
	if got := truncateTitle("short", 45); got != "short" {
		t.Errorf("short titles must pass through, got %q", got)
	}

	long := strings.Repeat("ü", 60)
	got := truncateTitle(long, 45)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a multibyte rune: %q", got)
	}
	if utf8.RuneCountInString(got) != 45 {
		t.Errorf("expected 45 runes, got %d", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
}

func TestGenerateTaskReportPDF(t *testing.T) {
	svc := NewPDFService()

	tasks := []models.Task{
		{
			Title:    strings.Repeat("日本語のタイトル", 12),
			Category: models.CategoryLearning,
			Status:   models.TaskStatusCompleted,
			DueDate:  "2024-06-01",
		},
		{
			Title:    "Contact recruiters",
			Category: models.CategoryNetworking,
			Status:   models.TaskStatusInProgress,
			DueDate:  "2024-06-02",
		},
	}

	data, err := svc.GenerateTaskReportPDF(tasks, models.UserProfile{Name: "Ada"}, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GenerateTaskReportPDF failed: %v", err)
	}
	if len(data) == 0 || !strings.HasPrefix(string(data[:5]), "%PDF-") {
		t.Errorf("expected PDF output, got %d bytes", len(data))
	}

	if _, err := svc.GenerateTaskReportPDF(nil, models.UserProfile{}, time.Now()); err == nil {
		t.Error("expected error for empty task list")
	}
}
