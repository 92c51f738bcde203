package transport

import (
	"github.com/fastygo/taskboard/domain"
)

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CreateTaskRequest struct {
	Title string `json:"title"`
}

// UpdateTaskRequest accepts only title and status; any other field is ignored.
type UpdateTaskRequest struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

// Patch carries the raw status through as a domain.Status. The use case validates the
// patch after the existence and ownership checks, so every bad field fails at the same step.
func (r UpdateTaskRequest) Patch() domain.TaskPatch {
	patch := domain.TaskPatch{Title: r.Title}
	if r.Status != nil {
		status := domain.Status(*r.Status)
		patch.Status = &status
	}
	return patch
}
