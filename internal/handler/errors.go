package handler

import (
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker-api/pkg/respond"
)

// errorWriter holds what both handler types need to answer an unexpected failure.
type errorWriter struct {
	logger *zap.Logger
	debug  bool
}

func (e errorWriter) serverError(w http.ResponseWriter, r *http.Request, err error) {
	e.logger.Error("internal error",
		zap.Error(err),
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
	)
	if e.debug {
		respond.ErrorWithStack(w, r, http.StatusInternalServerError, "Server error", fmt.Sprintf("%+v", err))
		return
	}
	respond.Error(w, r, http.StatusInternalServerError, "Server error")
}
