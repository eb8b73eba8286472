package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"taskpilot/internal/models"
)

// PDFService renders the weekly productivity report as a PDF
type PDFService struct{}

// NewPDFService creates a new PDF service
func NewPDFService() *PDFService {
	return &PDFService{}
}

// GenerateTaskReportPDF renders the given tasks as a PDF report
func (s *PDFService) GenerateTaskReportPDF(tasks []models.Task, profile models.UserProfile, generatedAt time.Time) ([]byte, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to report")
	}

	// A4, portrait
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("{nb}")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(108, 117, 125)
		pdf.SetX(15)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 102, 204)
	pdf.CellFormat(0, 20, "Weekly Productivity Report", "", 0, "C", false, 0, "")

	pdf.Ln(15)
	pdf.SetFont("Arial", "", 12)
	pdf.SetTextColor(108, 117, 125)
	subtitle := fmt.Sprintf("Generated: %s", generatedAt.Format("January 2, 2006"))
	if profile.Name != "" {
		subtitle = fmt.Sprintf("%s - %s", profile.Name, subtitle)
	}
	pdf.CellFormat(0, 10, subtitle, "", 0, "C", false, 0, "")
	pdf.Ln(15)

	s.addStatusCounts(pdf, tasks)
	s.addTaskTable(pdf, tasks)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// addStatusCounts adds the per-status totals line
func (s *PDFService) addStatusCounts(pdf *gofpdf.Fpdf, tasks []models.Task) {
	counts := map[models.TaskStatus]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(0, 8, "Overview", "", 0, "L", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	line := fmt.Sprintf("%d tasks total: %d completed, %d in progress, %d todo, %d failed verification",
		len(tasks),
		counts[models.TaskStatusCompleted],
		counts[models.TaskStatusInProgress],
		counts[models.TaskStatusTodo],
		counts[models.TaskStatusFailedVerification])
	pdf.CellFormat(0, 8, line, "", 0, "L", false, 0, "")
	pdf.Ln(12)
}

// addTaskTable adds the task listing table
func (s *PDFService) addTaskTable(pdf *gofpdf.Fpdf, tasks []models.Task) {
	// Page width 210mm, 15mm margins each side
	tableStartX := 15.0
	col1Width := 80.0 // Title
	col2Width := 35.0 // Category
	col3Width := 35.0 // Status
	col4Width := 30.0 // Due date
	tableWidth := col1Width + col2Width + col3Width + col4Width
	rowHeight := 7.0
	headerHeight := 8.0
	padding := 2.0

	headerY := pdf.GetY()
	pdf.SetFillColor(0, 102, 204)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 9)
	pdf.Rect(tableStartX, headerY, tableWidth, headerHeight, "FD")

	pdf.SetXY(tableStartX+padding, headerY)
	pdf.CellFormat(col1Width, headerHeight, "Task", "", 0, "L", false, 0, "")
	pdf.SetXY(tableStartX+col1Width+padding, headerY)
	pdf.CellFormat(col2Width, headerHeight, "Category", "", 0, "L", false, 0, "")
	pdf.SetXY(tableStartX+col1Width+col2Width+padding, headerY)
	pdf.CellFormat(col3Width, headerHeight, "Status", "", 0, "L", false, 0, "")
	pdf.SetXY(tableStartX+col1Width+col2Width+col3Width+padding, headerY)
	pdf.CellFormat(col4Width, headerHeight, "Due", "", 0, "L", false, 0, "")
	pdf.SetY(headerY + headerHeight)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(33, 37, 41)

	for i, task := range tasks {
		// Leave room for the footer
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}

		if i%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(248, 249, 250)
		}

		rowY := pdf.GetY()
		pdf.Rect(tableStartX, rowY, tableWidth, rowHeight, "FD")

		title := truncateTitle(task.Title, 45)
		pdf.SetXY(tableStartX+padding, rowY)
		pdf.CellFormat(col1Width, rowHeight, title, "", 0, "L", false, 0, "")
		pdf.SetXY(tableStartX+col1Width+padding, rowY)
		pdf.CellFormat(col2Width, rowHeight, string(task.Category), "", 0, "L", false, 0, "")
		pdf.SetXY(tableStartX+col1Width+col2Width+padding, rowY)
		pdf.CellFormat(col3Width, rowHeight, string(task.Status), "", 0, "L", false, 0, "")
		pdf.SetXY(tableStartX+col1Width+col2Width+col3Width+padding, rowY)
		pdf.CellFormat(col4Width, rowHeight, task.DueDate, "", 0, "L", false, 0, "")

		pdf.SetY(rowY + rowHeight)
	}

	pdf.Ln(10)
}

// truncateTitle shortens a title to max runes, never splitting a multibyte
// character
func truncateTitle(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
