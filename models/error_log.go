package models

import "time"

// ErrorLog model for error logs
type ErrorLog struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`          // IGNORE, DEBUG, NOTICE, WARNING, ERROR, FATAL
	Code      int       `json:"code"`           // Engine result code
	Source    string    `json:"source"`         // Error source (module name)
	Path      string    `json:"path,omitempty"` // Database path
	SQL       string    `json:"sql,omitempty"`
	Message   string    `json:"message"` // Error message
	Detail    string    `json:"detail"`  // Detailed information
	Stack     string    `json:"stack"`   // Stack trace
	Context   string    `json:"context"` // Context information (JSON format)
}
