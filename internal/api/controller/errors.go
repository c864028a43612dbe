package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/bassista/atlas/internal/model"
	"github.com/bassista/atlas/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		fetchErr *model.FetchError
		readErr  *model.StoreReadError
		writeErr *model.StoreWriteError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.As(err, &writeErr), errors.As(err, &readErr), errors.Is(err, model.ErrStore):
		return http.StatusInternalServerError
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidCoordinate), errors.Is(err, repository.ErrInvalidRings):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...} with the mapped status. Server side
// failures are attached to the gin context for the error reporter.
func respondError(c *gin.Context, log *logrus.Entry, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		log.WithError(err).Errorf("%s %s failed with %d", c.Request.Method, c.FullPath(), status)
	} else {
		log.WithError(err).Debugf("%s %s rejected with %d", c.Request.Method, c.FullPath(), status)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// errorMessages flattens an errors.Join result.
func errorMessages(err error) []string {
	if err == nil {
		return []string{}
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		out := []string{}
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
