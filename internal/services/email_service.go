package services

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"taskpilot/internal/config"
	"taskpilot/internal/models"
)

// EmailService handles email sending via SendGrid
type EmailService struct {
	apiKey    string
	fromEmail string
	client    *sendgrid.Client
}

// NewEmailService creates a new email service
func NewEmailService(cfg config.EmailConfig) *EmailService {
	client := sendgrid.NewSendClient(cfg.APIKey)
	return &EmailService{
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		client:    client,
	}
}

// SendTaskReminderEmail sends a due-soon or due-now reminder for one task
func (s *EmailService) SendTaskReminderEmail(profile models.UserProfile, task models.Task, dueNow bool) error {
	from := mail.NewEmail("TaskPilot", s.fromEmail)
	to := mail.NewEmail(profile.Name, profile.Email)

	subject := fmt.Sprintf("Reminder: %q is due in 30 minutes", task.Title)
	lead := fmt.Sprintf("Your task %q (%s) is due at %s on %s.", task.Title, task.Category, task.DueTime, task.DueDate)
	if dueNow {
		subject = fmt.Sprintf("Reminder: %q is due now", task.Title)
	}

	htmlContent := s.buildReminderEmailHTML(profile, task, lead)
	plainTextContent := fmt.Sprintf(`Hello %s,

%s

Open TaskPilot to check in and verify your progress.

---
This is an automated email. Please do not reply.`, profile.Name, lead)

	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)

	response, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

// SendWeeklySummaryEmail sends the weekly summary with the CSV report and
// PDF attached
func (s *EmailService) SendWeeklySummaryEmail(profile models.UserProfile, doc models.GeneratedDocument, pdfData []byte) error {
	from := mail.NewEmail("TaskPilot", s.fromEmail)
	to := mail.NewEmail(profile.Name, profile.Email)
	subject := fmt.Sprintf("Weekly Productivity Summary - %s", doc.Date)

	htmlContent := s.buildWeeklySummaryEmailHTML(profile, doc)
	plainTextContent := fmt.Sprintf(`Hello %s,

Your weekly productivity summary is ready. The full report is attached.

Best regards,
TaskPilot

---
This is an automated email. Please do not reply.
Generated on %s`, profile.Name, doc.Date)

	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)

	csvAttachment := mail.NewAttachment()
	csvAttachment.SetContent(base64.StdEncoding.EncodeToString([]byte(doc.Content)))
	csvAttachment.SetType("text/csv")
	csvAttachment.SetFilename(doc.Title)
	csvAttachment.SetDisposition("attachment")
	message.AddAttachment(csvAttachment)

	if len(pdfData) > 0 {
		pdfAttachment := mail.NewAttachment()
		pdfAttachment.SetContent(base64.StdEncoding.EncodeToString(pdfData))
		pdfAttachment.SetType("application/pdf")
		pdfAttachment.SetFilename(fmt.Sprintf("weekly-report-%s.pdf", doc.Date))
		pdfAttachment.SetDisposition("attachment")
		message.AddAttachment(pdfAttachment)
	}

	response, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

// buildReminderEmailHTML builds the HTML content for a task reminder
func (s *EmailService) buildReminderEmailHTML(profile models.UserProfile, task models.Task, lead string) string {
	var html bytes.Buffer

	html.WriteString(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #0066cc; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
        .content { background-color: #f8f9fa; padding: 20px; border-radius: 0 0 8px 8px; }
        .task-box { background-color: white; padding: 15px; border-radius: 5px; margin: 15px 0; border-left: 4px solid #0066cc; }
        .footer { text-align: center; color: #666; font-size: 12px; margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="header">
        <h1 style="margin: 0;">Task Reminder</h1>
    </div>
    <div class="content">
        <p>Hello ` + profile.Name + `,</p>
        <p>` + lead + `</p>
        <div class="task-box">
            <h3 style="margin-top: 0; color: #0066cc;">` + task.Title + `</h3>
            <p>` + task.Description + `</p>
        </div>
        <p>Open TaskPilot to check in and verify your progress.</p>
    </div>
    <div class="footer">
        <p>This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>`)

	return html.String()
}

// buildWeeklySummaryEmailHTML builds the HTML content for the weekly summary
func (s *EmailService) buildWeeklySummaryEmailHTML(profile models.UserProfile, doc models.GeneratedDocument) string {
	var html bytes.Buffer

	html.WriteString(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #0066cc; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
        .content { background-color: #f8f9fa; padding: 20px; border-radius: 0 0 8px 8px; }
        .footer { text-align: center; color: #666; font-size: 12px; margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="header">
        <h1 style="margin: 0;">Weekly Productivity Summary</h1>
    </div>
    <div class="content">
        <p>Hello ` + profile.Name + `,</p>
        <p>Your weekly productivity summary is ready. The full report is attached.</p>
        <p>Best regards,<br>TaskPilot</p>
    </div>
    <div class="footer">
        <p>This is an automated email. Please do not reply.</p>
        <p>Generated on ` + doc.Date + `</p>
    </div>
</body>
</html>`)

	return html.String()
}
