package service

import (
	"litebridge/core"
	"litebridge/database"
	"litebridge/trace"
)

// Services is the global service container
type Services struct {
	Sample   *SampleService
	Database *DatabaseService
	Logs     *LogService
}

// GlobalServices is the global service instance
var GlobalServices *Services

// InitServices initializes all services
func InitServices(db *database.Database, logger *core.ErrorLogger, hub *trace.Hub) *Services {
	GlobalServices = &Services{
		Sample:   NewSampleService(db, ""),
		Database: NewDatabaseService(db, hub),
		Logs:     NewLogService(logger),
	}
	return GlobalServices
}
