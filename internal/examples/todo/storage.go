package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned for unknown IDs.
	ErrNotFound = errors.New("todo not found")
	// ErrDuplicate is returned when saving an ID that already exists.
	ErrDuplicate = errors.New("todo already exists")
)

// Storage persists todos.
type Storage interface {
	Save(t *Todo) error
	Get(id string) (*Todo, error)
	All() ([]*Todo, error)
	Update(t *Todo) error
	Delete(id string) error
	Clear() error
}

// MemoryStorage keeps todos in a map.
type MemoryStorage struct {
	mu    sync.RWMutex
	todos map[string]*Todo
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{todos: make(map[string]*Todo)}
}

func (s *MemoryStorage) Save(t *Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.todos[t.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, t.ID)
	}
	s.todos[t.ID] = t
	return nil
}

func (s *MemoryStorage) Get(id string) (*Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.todos[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// All returns todos oldest first, ties broken by ID.
func (s *MemoryStorage) All() ([]*Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Todo, 0, len(s.todos))
	for _, t := range s.todos {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStorage) Update(t *Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.todos[t.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	}
	s.todos[t.ID] = t
	return nil
}

func (s *MemoryStorage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.todos[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.todos, id)
	return nil
}

func (s *MemoryStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = make(map[string]*Todo)
	return nil
}

// FileStorage keeps todos in a JSON file, rewritten on every change.
type FileStorage struct {
	path string
	mem  *MemoryStorage
}

type fileDocument struct {
	Todos []*Todo `json:"todos"`
}

// OpenFileStorage loads path, or starts empty when it does not exist.
func OpenFileStorage(path string) (*FileStorage, error) {
	s := &FileStorage{path: path, mem: NewMemoryStorage()}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for _, t := range doc.Todos {
		if err := s.mem.Save(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStorage) Path() string { return s.path }

func (s *FileStorage) flush() error {
	all, _ := s.mem.All()
	data, err := json.MarshalIndent(fileDocument{Todos: all}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

func (s *FileStorage) Save(t *Todo) error {
	if err := s.mem.Save(t); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStorage) Get(id string) (*Todo, error) { return s.mem.Get(id) }

func (s *FileStorage) All() ([]*Todo, error) { return s.mem.All() }

func (s *FileStorage) Update(t *Todo) error {
	if err := s.mem.Update(t); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStorage) Delete(id string) error {
	if err := s.mem.Delete(id); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStorage) Clear() error {
	_ = s.mem.Clear()
	return s.flush()
}

// FindByStatus returns the todos in st.
func FindByStatus(s Storage, st Status) ([]*Todo, error) {
	return filter(s, func(t *Todo) bool { return t.Status == st })
}

// FindByTag returns the todos carrying tag.
func FindByTag(s Storage, tag string) ([]*Todo, error) {
	return filter(s, func(t *Todo) bool { return t.HasTag(tag) })
}

// Search returns the todos matching query.
func Search(s Storage, query string) ([]*Todo, error) {
	return filter(s, func(t *Todo) bool { return t.MatchesSearch(query) })
}

func filter(s Storage, keep func(*Todo) bool) ([]*Todo, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	var out []*Todo
	for _, t := range all {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}
