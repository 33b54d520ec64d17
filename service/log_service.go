package service

import (
	"litebridge/core"
	"litebridge/models"
)

// LogService handles error log business logic
type LogService struct {
	logger *core.ErrorLogger
}

// NewLogService constructs a log service
func NewLogService(logger *core.ErrorLogger) *LogService {
	return &LogService{logger: logger}
}

// GetErrorLogs returns recent error logs, newest first
func (s *LogService) GetErrorLogs() []*models.ErrorLog {
	return s.logger.GetErrorLogs()
}

// GetErrorLogByID retrieves a single error log by ID
func (s *LogService) GetErrorLogByID(id int) *models.ErrorLog {
	return s.logger.GetErrorLogByID(id)
}

// ClearErrorLogs removes all error logs
func (s *LogService) ClearErrorLogs() {
	s.logger.ClearErrorLogs()
}
