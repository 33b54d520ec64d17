package handlers

import (
	"net/http"

	"litebridge/service"

	"github.com/gin-gonic/gin"
)

// CheckIntegrity runs an integrity check of the database
func CheckIntegrity(c *gin.Context) {
	corrupted, err := service.GlobalServices.Database.CheckIntegrity(c.Request.Context())
	if err != nil {
		failWith(c, "Integrity check failed", err)
		return
	}
	ok(c, gin.H{"corrupted": corrupted})
}

// Checkpoint checkpoints the WAL; ?mode=truncate truncates it
func Checkpoint(c *gin.Context) {
	mode := c.DefaultQuery("mode", "passive")
	if mode != "passive" && mode != "truncate" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid checkpoint mode", mode)
		return
	}
	if err := service.GlobalServices.Database.Checkpoint(c.Request.Context(), mode); err != nil {
		failWith(c, "Checkpoint failed", err)
		return
	}
	ok(c, gin.H{"ok": true, "mode": mode})
}

// Backup writes the database backup
func Backup(c *gin.Context) {
	if err := service.GlobalServices.Database.Backup(c.Request.Context()); err != nil {
		failWith(c, "Backup failed", err)
		return
	}
	ok(c, gin.H{"ok": true})
}

// Retrieve rebuilds the database from its deposits and backup
func Retrieve(c *gin.Context) {
	score, err := service.GlobalServices.Database.Retrieve(c.Request.Context())
	if err != nil {
		failWith(c, "Retrieve failed", err)
		return
	}
	ok(c, gin.H{"score": score})
}

// Deposit moves the current database files aside
func Deposit(c *gin.Context) {
	if err := service.GlobalServices.Database.Deposit(); err != nil {
		failWith(c, "Deposit failed", err)
		return
	}
	ok(c, gin.H{"ok": true})
}
