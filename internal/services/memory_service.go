package services

import (
	"context"
	"sync"
	"time"

	"taskpilot/internal/models"
)

const (
	// masteryDefault is the starting score for a topic never quizzed before
	masteryDefault = 0.5
	// masteryWeight scales how far a single quiz moves the mastery score
	masteryWeight = 0.3
)

// Recommender produces next-task suggestions from mastery scores.
// AIService implements it; tests substitute their own.
type Recommender interface {
	RecommendNextTasks(ctx context.Context, skills map[string]float64) []models.TaskRecommendation
}

// MemorySnapshot is what gets handed to the persistence hook after every
// recorded quiz
type MemorySnapshot struct {
	History []models.QuizRecord
	Skills  map[string]float64
}

// MemoryPersistFunc receives memory snapshots on a single worker
// goroutine, the same fire-and-forget contract as the task store's hook
type MemoryPersistFunc func(MemorySnapshot)

// MemoryService tracks quiz history and per-topic mastery scores. Scores
// live in [0, 1], start at 0.5 for unseen topics and move with each quiz
// proportionally to how far the score sits from the midpoint.
type MemoryService struct {
	recommender Recommender

	mutex   sync.Mutex
	history []models.QuizRecord
	skills  map[string]float64

	persistCh chan MemorySnapshot

	// Now is the clock used for history timestamps, overridable in tests
	Now func() time.Time
}

// NewMemoryService creates an empty memory service
func NewMemoryService(recommender Recommender) *MemoryService {
	return &MemoryService{
		recommender: recommender,
		skills:      make(map[string]float64),
		Now:         time.Now,
	}
}

// Restore replaces the in-memory state, used for the startup load
func (s *MemoryService) Restore(history []models.QuizRecord, skills map[string]float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.history = append([]models.QuizRecord(nil), history...)
	s.skills = make(map[string]float64, len(skills))
	for title, mastery := range skills {
		s.skills[title] = mastery
	}
}

// SetPersistFunc installs the fire-and-forget persistence hook and starts
// its worker. Call at most once, before the service is shared.
func (s *MemoryService) SetPersistFunc(fn MemoryPersistFunc) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if fn == nil || s.persistCh != nil {
		return
	}

	s.persistCh = make(chan MemorySnapshot, 1)
	go func() {
		for snapshot := range s.persistCh {
			fn(snapshot)
		}
	}()
}

// UpdateFromQuiz logs a graded quiz and moves the topic's mastery score.
// An empty title is recorded as "Untitled" rather than dropped.
func (s *MemoryService) UpdateFromQuiz(title string, result models.QuizResult) models.MemoryUpdate {
	if title == "" {
		title = "Untitled"
	}

	s.mutex.Lock()
	s.history = append(s.history, models.QuizRecord{
		Title:     title,
		Score:     result.Score,
		Passed:    result.Passed,
		Timestamp: s.Now(),
	})

	current, known := s.skills[title]
	if !known {
		current = masteryDefault
	}
	mastery := current + (result.Score-masteryDefault)*masteryWeight
	if mastery < 0 {
		mastery = 0
	}
	if mastery > 1 {
		mastery = 1
	}
	s.skills[title] = mastery

	snapshot, ch := s.snapshotLocked(), s.persistCh
	s.mutex.Unlock()

	if ch != nil {
		sendLatestMemory(ch, snapshot)
	}

	nextAgent := "HelpAgent"
	if result.Passed {
		nextAgent = "None"
	}
	return models.MemoryUpdate{
		Mastery:   mastery,
		Passed:    result.Passed,
		NextAgent: nextAgent,
	}
}

// Snapshot returns copies of the history and mastery scores
func (s *MemoryService) Snapshot() MemorySnapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.snapshotLocked()
}

func (s *MemoryService) snapshotLocked() MemorySnapshot {
	snapshot := MemorySnapshot{
		History: append([]models.QuizRecord(nil), s.history...),
		Skills:  make(map[string]float64, len(s.skills)),
	}
	for title, mastery := range s.skills {
		snapshot.Skills[title] = mastery
	}
	return snapshot
}

// Recommend asks for next-task suggestions based on the current mastery
// scores. The remote call runs with the mutex released.
func (s *MemoryService) Recommend(ctx context.Context) []models.TaskRecommendation {
	skills := s.Snapshot().Skills
	return s.recommender.RecommendNextTasks(ctx, skills)
}

// sendLatestMemory delivers the snapshot without blocking, evicting a
// stale queued snapshot under a slow writer
func sendLatestMemory(ch chan MemorySnapshot, snapshot MemorySnapshot) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
