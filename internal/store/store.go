package store

import (
	"fmt"
	"sort"
	"sync"

	"taskpilot/internal/models"
)

// Snapshot is what gets handed to the persistence hook on every mutation
type Snapshot struct {
	Tasks   []models.Task
	Profile models.UserProfile
}

// PersistFunc receives state snapshots on a single worker goroutine. The
// store never waits for it and never reads anything back; snapshots
// coalesce under a slow writer so the latest state is always the last one
// delivered.
type PersistFunc func(Snapshot)

// TaskStore is the in-memory collection of tasks, the single user profile
// and the session's generated documents. It owns no logic beyond mutation;
// callers are responsible for valid enum values and required fields.
type TaskStore struct {
	mutex     sync.RWMutex
	tasks     map[string]*models.Task
	seq       map[string]int // insertion sequence, tie-break for ordering
	nextSeq   int
	profile   models.UserProfile
	documents []models.GeneratedDocument
	persistCh chan Snapshot
}

// NewTaskStore creates an empty store
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*models.Task),
		seq:   make(map[string]int),
	}
}

// SetPersistFunc installs the fire-and-forget persistence hook and starts
// its worker. Serializing through one goroutine keeps snapshot writes in
// mutation order; two racing writers could otherwise land an older snapshot
// last. Call at most once, before the store is shared.
func (s *TaskStore) SetPersistFunc(fn PersistFunc) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if fn == nil || s.persistCh != nil {
		return
	}

	s.persistCh = make(chan Snapshot, 1)
	go func() {
		for snapshot := range s.persistCh {
			fn(snapshot)
		}
	}()
}

// List returns all tasks ordered by their column order, insertion order
// breaking ties. Returned tasks are copies.
func (s *TaskStore) List() []models.Task {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tasks := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Order != tasks[j].Order {
			return tasks[i].Order < tasks[j].Order
		}
		return s.seq[tasks[i].ID] < s.seq[tasks[j].ID]
	})
	return tasks
}

// Get retrieves a task by ID
func (s *TaskStore) Get(id string) (models.Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	task, exists := s.tasks[id]
	if !exists {
		return models.Task{}, fmt.Errorf("task not found: %s", id)
	}
	return *task, nil
}

// Upsert creates the task if its ID is unknown, otherwise replaces it
func (s *TaskStore) Upsert(task models.Task) {
	s.mutex.Lock()
	if _, exists := s.tasks[task.ID]; !exists {
		s.seq[task.ID] = s.nextSeq
		s.nextSeq++
	}
	t := task
	s.tasks[task.ID] = &t
	s.mutex.Unlock()

	s.notify()
}

// Remove deletes a task. Removing an unknown ID is a no-op.
func (s *TaskStore) Remove(id string) {
	s.mutex.Lock()
	delete(s.tasks, id)
	delete(s.seq, id)
	s.mutex.Unlock()

	s.notify()
}

// ReplaceAll swaps the whole task collection (bulk save from the client,
// or the startup restore from the snapshot store)
func (s *TaskStore) ReplaceAll(tasks []models.Task) {
	s.mutex.Lock()
	s.tasks = make(map[string]*models.Task, len(tasks))
	s.seq = make(map[string]int, len(tasks))
	s.nextSeq = 0
	for _, task := range tasks {
		t := task
		s.tasks[t.ID] = &t
		s.seq[t.ID] = s.nextSeq
		s.nextSeq++
	}
	s.mutex.Unlock()

	s.notify()
}

// Profile returns the user profile
func (s *TaskStore) Profile() models.UserProfile {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.profile
}

// SetProfile replaces the user profile
func (s *TaskStore) SetProfile(profile models.UserProfile) {
	s.mutex.Lock()
	s.profile = profile
	s.mutex.Unlock()

	s.notify()
}

// Documents returns the session's generated documents, newest last
func (s *TaskStore) Documents() []models.GeneratedDocument {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	docs := make([]models.GeneratedDocument, len(s.documents))
	copy(docs, s.documents)
	return docs
}

// AddDocument appends a generated document. Documents are never mutated
// after creation and are not included in persistence snapshots.
func (s *TaskStore) AddDocument(doc models.GeneratedDocument) {
	s.mutex.Lock()
	s.documents = append(s.documents, doc)
	s.mutex.Unlock()
}

// notify queues a fresh snapshot for the persistence worker, best effort.
// Each snapshot carries the full state, so replacing a queued older one
// with a newer one loses nothing.
func (s *TaskStore) notify() {
	s.mutex.RLock()
	ch := s.persistCh
	s.mutex.RUnlock()
	if ch == nil {
		return
	}

	snapshot := Snapshot{
		Tasks:   s.List(),
		Profile: s.Profile(),
	}

	for {
		select {
		case ch <- snapshot:
			return
		default:
		}
		// Queue full: evict the stale snapshot and retry
		select {
		case <-ch:
		default:
		}
	}
}
