package service

import (
	"context"
	"fmt"
	"strings"

	"litebridge/database"
	"litebridge/trace"
)

// DatabaseService exposes maintenance operations of a database
type DatabaseService struct {
	db  *database.Database
	hub *trace.Hub
}

// NewDatabaseService constructs a database service. hub may be nil. When
// set, the first corruption observed on db, whether by an integrity check
// or by an engine error, is published to hub as a "corruption" event.
func NewDatabaseService(db *database.Database, hub *trace.Hub) *DatabaseService {
	s := &DatabaseService{db: db, hub: hub}
	if hub != nil {
		db.SetNotificationWhenCorrupted(s.notifyCorrupted)
	}
	return s
}

func (s *DatabaseService) notifyCorrupted(db *database.Database) {
	logCorruption(db)
	s.hub.Publish(trace.Event{Kind: "corruption", Path: db.Path(), Tag: db.Tag()})
}

func (s *DatabaseService) Database() *database.Database { return s.db }

// Stats is a snapshot of database health counters.
type Stats struct {
	Path             string `json:"path"`
	Opened           bool   `json:"opened"`
	Blockaded        bool   `json:"blockaded"`
	Corrupted        bool   `json:"corrupted"`
	HasDeposits      bool   `json:"has_deposits"`
	Handles          int64  `json:"handles"`
	FileSize         int64  `json:"file_size"`
	ErrorsTotal      uint64 `json:"sqlite_errors_total"`
	BusyErrors       uint64 `json:"sqlite_busy_errors_total"`
	LockedErrors     uint64 `json:"sqlite_locked_errors_total"`
	CorruptErrors    uint64 `json:"sqlite_corrupt_errors_total"`
	TraceSubscribers int    `json:"trace_subscribers"`
	TraceDropped     uint64 `json:"trace_dropped_total"`
}

// Stats collects the current counters
func (s *DatabaseService) Stats() (Stats, error) {
	size, err := s.db.FileSize()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to size database: %w", err)
	}
	st := Stats{
		Path:          s.db.Path(),
		Opened:        s.db.IsOpened(),
		Blockaded:     s.db.IsBlockaded(),
		Corrupted:     s.db.IsAlreadyCorrupted(),
		HasDeposits:   s.db.ContainsDepositedFiles(),
		Handles:       s.db.Handles(),
		FileSize:      size,
		ErrorsTotal:   database.SQLiteErrorsTotal(),
		BusyErrors:    database.SQLiteBusyErrorsTotal(),
		LockedErrors:  database.SQLiteLockedErrorsTotal(),
		CorruptErrors: database.SQLiteCorruptErrorsTotal(),
	}
	if s.hub != nil {
		st.TraceSubscribers = s.hub.Subscribers()
		st.TraceDropped = s.hub.Dropped()
	}
	return st, nil
}

// CheckIntegrity runs an integrity check
func (s *DatabaseService) CheckIntegrity(ctx context.Context) (bool, error) {
	known := s.db.IsAlreadyCorrupted()
	corrupted, err := s.db.CheckIfCorrupted(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check integrity: %w", err)
	}
	// A first detection is published by the corruption notification.
	if corrupted && known && s.hub != nil {
		s.hub.Publish(trace.Event{Kind: "corruption", Path: s.db.Path(), Tag: s.db.Tag()})
	}
	return corrupted, nil
}

// Checkpoint runs a passive or truncate checkpoint
func (s *DatabaseService) Checkpoint(ctx context.Context, mode string) error {
	var err error
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "passive":
		err = s.db.PassiveCheckpoint(ctx)
	case "truncate":
		err = s.db.TruncateCheckpoint(ctx)
	default:
		return fmt.Errorf("unknown checkpoint mode %q", mode)
	}
	if err != nil {
		return fmt.Errorf("failed to checkpoint: %w", err)
	}
	return nil
}

// Backup writes the backup file
func (s *DatabaseService) Backup(ctx context.Context) error {
	if err := s.db.Backup(ctx); err != nil {
		return fmt.Errorf("failed to back up: %w", err)
	}
	return nil
}

// Retrieve rebuilds the database from deposits and backup, reporting
// progress to the trace stream
func (s *DatabaseService) Retrieve(ctx context.Context) (float64, error) {
	score, err := s.db.Retrieve(ctx, func(percentage, increment float64) {
		if s.hub != nil {
			s.hub.Publish(trace.Event{
				Kind: "retrieve", Path: s.db.Path(),
				Detail: map[string]any{"percentage": percentage, "increment": increment},
			})
		}
	})
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve: %w", err)
	}
	return score, nil
}

// Deposit moves the current files aside
func (s *DatabaseService) Deposit() error {
	if err := s.db.Deposit(); err != nil {
		return fmt.Errorf("failed to deposit: %w", err)
	}
	return nil
}
