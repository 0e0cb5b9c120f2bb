package handler

import (
	"time"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
)

type authResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    model.PublicUser `json:"user"`
}

type meResponse struct {
	User model.PublicUser `json:"user"`
}

type taskResponse struct {
	Message string         `json:"message,omitempty"`
	Task    model.TaskView `json:"task"`
}

type tasksResponse struct {
	Tasks []model.TaskView `json:"tasks"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
