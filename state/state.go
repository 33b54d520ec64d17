package state

import (
	"errors"
	"sort"
	"sync"

	"litebridge/database"
)

// AppState holds application state
type AppState struct {
	Databases map[string]*database.Database
	sync.RWMutex
}

// Global is the shared application state instance
var Global = NewAppState()

func NewAppState() *AppState {
	return &AppState{Databases: make(map[string]*database.Database)}
}

// AddDatabase registers db under its path, replacing any previous entry.
func (s *AppState) AddDatabase(db *database.Database) {
	s.Lock()
	defer s.Unlock()
	s.Databases[db.Path()] = db
}

// GetDatabase safely fetches a database by absolute path
func (s *AppState) GetDatabase(path string) (*database.Database, bool) {
	s.RLock()
	defer s.RUnlock()
	db, exists := s.Databases[path]
	return db, exists
}

// Paths returns the registered paths in sorted order.
func (s *AppState) Paths() []string {
	s.RLock()
	defer s.RUnlock()
	paths := make([]string, 0, len(s.Databases))
	for p := range s.Databases {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// RemoveAndCloseDatabase safely removes and closes a database to avoid deadlocks
func (s *AppState) RemoveAndCloseDatabase(path string) (bool, error) {
	s.Lock()
	db, exists := s.Databases[path]
	if exists {
		delete(s.Databases, path)
	}
	s.Unlock()

	// Close outside lock: Close waits for running operations
	if exists {
		return true, db.Close(nil)
	}
	return false, nil
}

// CloseAll closes and forgets every database.
func (s *AppState) CloseAll() error {
	var errs error
	for _, p := range s.Paths() {
		if _, err := s.RemoveAndCloseDatabase(p); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
