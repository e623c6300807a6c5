package domain

import "time"

// AccessDecision is one authorization outcome of the role guard.
type AccessDecision struct {
	UserID       string    `json:"user_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         Role      `json:"role,omitempty"`
	RequiredRole Role      `json:"required_role"`
	IP           string    `json:"ip"`
	Operation    string    `json:"operation"`
	Allowed      bool      `json:"allowed"`
	Reason       string    `json:"reason,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
