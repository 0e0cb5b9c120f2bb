package handler

import (
	"net/http"
	"time"

	"github.com/BuzzLyutic/task-tracker-api/pkg/respond"
)

func Health(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, healthResponse{
			Message:   "Backend API is running!",
			Timestamp: time.Now().UTC(),
			Version:   version,
		})
	}
}
