package models

import "time"

// TaskStatus represents where a task sits in the kanban workflow
type TaskStatus string

const (
	TaskStatusTodo               TaskStatus = "Todo"
	TaskStatusInProgress         TaskStatus = "In Progress"
	TaskStatusCompleted          TaskStatus = "Completed"
	TaskStatusFailedVerification TaskStatus = "Failed Verification"
)

// TaskCategory is the fixed category enumeration
type TaskCategory string

const (
	CategoryResearch       TaskCategory = "Research"
	CategoryNetworking     TaskCategory = "Networking"
	CategoryJobApplication TaskCategory = "Job Application"
	CategoryLearning       TaskCategory = "Learning"
	CategoryOther          TaskCategory = "Other"
)

// AIAccessLevel controls how a check-in is verified
type AIAccessLevel string

const (
	// AccessCheckProgress verifies completion via quiz or claim check
	AccessCheckProgress AIAccessLevel = "Check Progress (Quiz/Verify)"
	// AccessStatusOnly trusts the user and only records the status change
	AccessStatusOnly AIAccessLevel = "Just Check Status"
)

// ReminderTime is when the user wants to be reminded about a task
type ReminderTime string

const (
	ReminderThirtyMinBefore ReminderTime = "30 mins before"
	ReminderAtCompletion    ReminderTime = "At completion time"
)

// CharacterType is the cosmetic companion shown in the UI. It has no effect
// on any logic here; it is carried through for the client.
type CharacterType string

const (
	CharacterMale   CharacterType = "Male"
	CharacterFemale CharacterType = "Female"
	CharacterCat    CharacterType = "Cat"
	CharacterDog    CharacterType = "Dog"
	CharacterBear   CharacterType = "Bear"
	CharacterPanda  CharacterType = "Panda"
)

// Task is a single tracked task
type Task struct {
	ID                      string        `json:"id" bson:"id"`
	Title                   string        `json:"title" bson:"title"`
	Description             string        `json:"description" bson:"description"`
	Category                TaskCategory  `json:"category" bson:"category"`
	DueDate                 string        `json:"dueDate" bson:"dueDate"` // YYYY-MM-DD
	DueTime                 string        `json:"dueTime" bson:"dueTime"` // HH:MM
	AIAccess                AIAccessLevel `json:"aiAccess" bson:"aiAccess"`
	Reminder                ReminderTime  `json:"reminder" bson:"reminder"`
	Status                  TaskStatus    `json:"status" bson:"status"`
	Order                   int           `json:"order" bson:"order"`
	VerificationFailedCount int           `json:"verificationFailedCount" bson:"verificationFailedCount"`
	CompletedAt             *time.Time    `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// IsActive reports whether the task is in a state that allows check-in
func (t *Task) IsActive() bool {
	return t.Status == TaskStatusInProgress || t.Status == TaskStatusFailedVerification
}

// ValidCategory reports whether c is one of the known categories
func ValidCategory(c TaskCategory) bool {
	switch c {
	case CategoryResearch, CategoryNetworking, CategoryJobApplication, CategoryLearning, CategoryOther:
		return true
	}
	return false
}

// ValidAccessLevel reports whether a is a known AI access level
func ValidAccessLevel(a AIAccessLevel) bool {
	return a == AccessCheckProgress || a == AccessStatusOnly
}
