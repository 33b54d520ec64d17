package handlers

import (
	"net/http"
	"strconv"

	"litebridge/models"
	"litebridge/service"

	"github.com/gin-gonic/gin"
)

func parseSampleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid sample id", "invalid sample id")
		return 0, false
	}
	return id, true
}

// ListSamples returns a page of samples
func ListSamples(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	samples, total, err := service.GlobalServices.Sample.ListPage(c.Request.Context(), page, pageSize, c.Query("order"))
	if err != nil {
		failWith(c, "Failed to list samples", err)
		return
	}
	ok(c, gin.H{"items": samples, "total": total, "page": page, "page_size": pageSize})
}

// GetSample returns one sample
func GetSample(c *gin.Context) {
	id, valid := parseSampleID(c)
	if !valid {
		return
	}
	sample, err := service.GlobalServices.Sample.Get(c.Request.Context(), id)
	if err != nil {
		failWith(c, "Failed to load sample", err)
		return
	}
	ok(c, sample)
}

// CreateSample inserts a sample; ?replace=true replaces an existing one
func CreateSample(c *gin.Context) {
	var req models.SampleCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}

	svc := service.GlobalServices.Sample
	var (
		sample *models.Sample
		err    error
	)
	if c.Query("replace") == "true" {
		sample, err = svc.Save(c.Request.Context(), req)
	} else {
		sample, err = svc.Create(c.Request.Context(), req)
	}
	if err != nil {
		failWith(c, "Failed to create sample", err)
		return
	}
	ok(c, gin.H{"id": sample.ID})
}

// UpdateSample writes the listed columns of a sample
func UpdateSample(c *gin.Context) {
	id, valid := parseSampleID(c)
	if !valid {
		return
	}
	var req models.SampleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}

	sample, err := service.GlobalServices.Sample.Update(c.Request.Context(), id, req)
	if err != nil {
		failWith(c, "Failed to update sample", err)
		return
	}
	ok(c, sample)
}

// DeleteSample deletes a sample
func DeleteSample(c *gin.Context) {
	id, valid := parseSampleID(c)
	if !valid {
		return
	}
	if err := service.GlobalServices.Sample.Delete(c.Request.Context(), id); err != nil {
		failWith(c, "Failed to delete sample", err)
		return
	}
	ok(c, gin.H{"ok": true})
}
