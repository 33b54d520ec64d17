package handlers

import (
	"errors"
	"net/http"

	"litebridge/core"
	"litebridge/dberror"
	"litebridge/orm"
	"litebridge/service"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

const (
	CodeOK             = "OK"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeResourceBusy   = "RESOURCE_BUSY"
	CodeCorrupted      = "DATABASE_CORRUPTED"
	CodeInternal       = "INTERNAL_ERROR"
)

func respond(c *gin.Context, status int, code, message string, data any) {
	c.JSON(status, Response{Code: code, Message: message, Data: data})
}

func ok(c *gin.Context, data any) {
	respond(c, http.StatusOK, CodeOK, "OK", data)
}

func fail(c *gin.Context, status int, code, message string, detail any) {
	// Keep the envelope stable: put free-form details into `data.detail`.
	payload := gin.H{}
	if detail != nil {
		payload["detail"] = detail
	}
	respond(c, status, code, message, payload)
}

// failWith maps service and database errors onto the envelope.
func failWith(c *gin.Context, message string, err error) {
	var apiErr *core.APIError
	var dbErr *dberror.Error
	switch {
	case errors.As(err, &apiErr):
		code := CodeInternal
		switch apiErr.Code {
		case http.StatusBadRequest:
			code = CodeInvalidRequest
		case http.StatusNotFound:
			code = CodeNotFound
		case http.StatusConflict:
			code = CodeConflict
		}
		fail(c, apiErr.Code, code, message, apiErr.Message)
	case errors.Is(err, core.ErrSampleNotFound):
		fail(c, http.StatusNotFound, CodeNotFound, message, err.Error())
	case errors.Is(err, service.ErrSampleAlreadyExists):
		fail(c, http.StatusConflict, CodeConflict, message, err.Error())
	case errors.Is(err, orm.ErrNoCipher):
		fail(c, http.StatusBadRequest, CodeInvalidRequest, message, err.Error())
	case errors.As(err, &dbErr):
		switch dbErr.Code {
		case dberror.CodeBusy, dberror.CodeLocked:
			fail(c, http.StatusServiceUnavailable, CodeResourceBusy, message, dbErr.Fields())
		case dberror.CodeConstraint:
			fail(c, http.StatusConflict, CodeConflict, message, dbErr.Fields())
		case dberror.CodeCorrupt, dberror.CodeNotADatabase:
			fail(c, http.StatusInternalServerError, CodeCorrupted, message, dbErr.Fields())
		default:
			fail(c, http.StatusInternalServerError, CodeInternal, message, dbErr.Fields())
		}
	default:
		fail(c, http.StatusInternalServerError, CodeInternal, message, err.Error())
	}
}
