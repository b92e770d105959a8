package api

import (
	"github.com/ssargent/eventring/pkg/archive"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port       int
	DataDir    string
	ArchiveDir string
}

// SegmentIndex is the slice of the archive index the server reads from.
type SegmentIndex interface {
	Segments() ([]archive.Segment, error)
	Overlapping(t1, t2 float64) ([]archive.Segment, error)
}
