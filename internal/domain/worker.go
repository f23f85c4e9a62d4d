package domain

import "time"

// WorkerInfo represents a runner node and its slot usage
type WorkerInfo struct {
	ID            string    `json:"id"`
	Languages     []string  `json:"languages"`
	Capacity      int       `json:"capacity"`
	CurrentLoad   int       `json:"currentLoad"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	Hostname      string    `json:"hostname"`
	OS            string    `json:"os"`
	Version       string    `json:"version"`
	IsActive      bool      `json:"isActive"`
}
