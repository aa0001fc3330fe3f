package usage

import "time"

// Usage represents a user's generation-quota snapshot. Every LLM-backed
// wizard operation consumes one unit.
type Usage struct {
	Plan     string    `json:"plan"`
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}
