package monitor

import "time"

type Status struct {
	Services  map[string]bool `json:"services"`
	LastCheck time.Time       `json:"last_check"`
}

// Healthy reports whether a check has run and every probe passed.
func (s Status) Healthy() bool {
	if s.LastCheck.IsZero() {
		return false
	}
	for _, ok := range s.Services {
		if !ok {
			return false
		}
	}
	return true
}

func (s Status) clone() Status {
	services := make(map[string]bool, len(s.Services))
	for k, v := range s.Services {
		services[k] = v
	}
	return Status{Services: services, LastCheck: s.LastCheck}
}
