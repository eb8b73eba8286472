package models

// DocumentType is the export format of a generated document
type DocumentType string

const (
	DocumentCSV DocumentType = "csv"
)

// GeneratedDocument is an exported report. Created by explicit user action,
// retained in memory for the session, never mutated after creation.
type GeneratedDocument struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Type    DocumentType `json:"type"`
	Date    string       `json:"date"`
	Content string       `json:"content"`
}
