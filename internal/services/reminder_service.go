package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskpilot/internal/models"
	"taskpilot/internal/store"
	"taskpilot/internal/utils"
)

// ReminderService drives scheduled email delivery: per-task due reminders
// and the Monday weekly summary.
type ReminderService struct {
	store       *store.TaskStore
	emailSvc    *EmailService
	documentSvc *DocumentService
	pdfSvc      *PDFService
	cron        *cron.Cron

	mutex sync.Mutex
	sent  map[string]bool // reminder key -> already delivered

	// Now is the clock used for due checks, overridable in tests
	Now func() time.Time
}

// NewReminderService creates a new reminder service
func NewReminderService(
	taskStore *store.TaskStore,
	emailSvc *EmailService,
	documentSvc *DocumentService,
	pdfSvc *PDFService,
) *ReminderService {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &ReminderService{
		store:       taskStore,
		emailSvc:    emailSvc,
		documentSvc: documentSvc,
		pdfSvc:      pdfSvc,
		cron:        c,
		sent:        make(map[string]bool),
		Now:         time.Now,
	}
}

// Start registers the cron entries and starts the scheduler
func (s *ReminderService) Start() error {
	// Due-reminder sweep every minute
	if _, err := s.cron.AddFunc("0 * * * * *", s.CheckDueReminders); err != nil {
		return fmt.Errorf("failed to schedule reminder sweep: %w", err)
	}

	// Weekly summary every Monday at 00:00:00
	if _, err := s.cron.AddFunc("0 0 0 * * 1", s.SendWeeklySummary); err != nil {
		return fmt.Errorf("failed to schedule weekly summary: %w", err)
	}

	s.cron.Start()
	log.Println("Reminder cron scheduler started")
	return nil
}

// Stop stops the cron scheduler
func (s *ReminderService) Stop() {
	s.cron.Stop()
	log.Println("Reminder cron scheduler stopped")
}

// CheckDueReminders sends a reminder for each active task whose reminder
// window has been reached. Each task/due-timestamp pair is delivered at
// most once; extending the deadline produces a new pair and re-arms the
// reminder.
func (s *ReminderService) CheckDueReminders() {
	profile := s.store.Profile()
	if profile.Email == "" {
		return
	}

	now := s.Now()
	for _, task := range s.store.List() {
		if !task.IsActive() {
			continue
		}

		due, err := utils.CombineDateTime(task.DueDate, task.DueTime)
		if err != nil {
			log.Printf("WARNING: Task %s has unparseable due date/time: %v", task.ID, err)
			continue
		}

		var triggerAt time.Time
		dueNow := task.Reminder == models.ReminderAtCompletion
		if dueNow {
			triggerAt = due
		} else {
			triggerAt = due.Add(-30 * time.Minute)
		}
		if now.Before(triggerAt) {
			continue
		}

		key := fmt.Sprintf("%s|%s %s", task.ID, task.DueDate, task.DueTime)
		s.mutex.Lock()
		delivered := s.sent[key]
		if !delivered {
			s.sent[key] = true
		}
		s.mutex.Unlock()
		if delivered {
			continue
		}

		if err := s.emailSvc.SendTaskReminderEmail(profile, task, dueNow); err != nil {
			log.Printf("ERROR: Failed to send reminder for task %s: %v", task.ID, err)
		} else {
			log.Printf("Sent reminder for task %s (%s)", task.ID, task.Title)
		}
	}
}

// SendWeeklySummary generates the productivity report and emails it with
// the CSV and a PDF rendering attached
func (s *ReminderService) SendWeeklySummary() {
	profile := s.store.Profile()
	if profile.Email == "" {
		log.Println("WARNING: No profile email set, skipping weekly summary")
		return
	}

	tasks := s.store.List()
	if len(tasks) == 0 {
		log.Println("No tasks to summarize, skipping weekly summary")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	doc := s.documentSvc.GenerateSpreadsheet(ctx, tasks, profile)

	pdfData, err := s.pdfSvc.GenerateTaskReportPDF(tasks, profile, s.Now())
	if err != nil {
		log.Printf("WARNING: Failed to render weekly PDF, sending CSV only: %v", err)
	}

	if err := s.emailSvc.SendWeeklySummaryEmail(profile, doc, pdfData); err != nil {
		log.Printf("ERROR: Failed to send weekly summary: %v", err)
		return
	}
	log.Printf("Sent weekly summary to %s", profile.Email)
}
