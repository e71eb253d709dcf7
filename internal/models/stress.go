package models

import "time"

// StressStatus represents the state of the stress session
type StressStatus struct {
	Running     bool      `json:"running"`
	Paused      bool      `json:"paused"`
	ThreadCount int       `json:"thread_count"`
	Rounds      uint64    `json:"rounds"`
	StartedAt   time.Time `json:"started_at,omitempty"`
}

// StressStartRequest is the body accepted by the start endpoint
type StressStartRequest struct {
	Threads int `json:"threads"`
}
