package reservations

import "cafehub/models"

var transitions = map[string][]string{
	models.StatusPendingApproval: {models.StatusConfirmed, models.StatusCompleted, models.StatusCancelled, models.StatusRejected},
	models.StatusConfirmed:       {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted:       nil,
	models.StatusCancelled:       nil,
	models.StatusRejected:        nil,
}

func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a reservation may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func Terminal(s string) bool {
	return ValidStatus(s) && len(transitions[s]) == 0
}
