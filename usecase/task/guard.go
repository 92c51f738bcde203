package task

import "github.com/fastygo/taskboard/domain"

// Authorize allows actorID to act on t only when it is exactly the task's owner.
// An empty actor is an unauthenticated caller.
func Authorize(actorID string, t *domain.Task) error {
	if actorID == "" || t == nil || t.Owner != actorID {
		return domain.ErrUnauthorized
	}
	return nil
}
