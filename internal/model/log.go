package model

import (
	"time"

	"github.com/google/uuid"
)

// Log stream names.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// LogLine is one captured line of engine output.
type LogLine struct {
	ID         int64     `json:"id"`
	DownloadID uuid.UUID `json:"download_id"`
	Timestamp  time.Time `json:"timestamp"`
	Stream     string    `json:"stream"`
	Line       string    `json:"line"`
}
