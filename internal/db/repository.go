package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/downlinkhq/downlink/internal/model"
)

// Repository defines persistence operations for the download engine
type Repository interface {
	// Downloads
	CreateDownload(ctx context.Context, d *model.Download) error
	GetDownload(ctx context.Context, id uuid.UUID) (*model.Download, error)
	ListDownloads(ctx context.Context, opts ListOptions) ([]model.Download, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]model.Download, error)
	UpdateDownload(ctx context.Context, d *model.Download) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status, phase model.Phase) error
	UpdateProgress(ctx context.Context, id uuid.UUID, p model.Progress) error
	DeleteDownload(ctx context.Context, id uuid.UUID) error
	DeleteByStatus(ctx context.Context, status model.Status) (int64, error)
	CountByStatus(ctx context.Context) (map[model.Status]int, error)

	// Startup reconciliation: downloads left active by a previous run are
	// returned to the waiting line.
	ResetActiveToQueued(ctx context.Context) (int64, error)

	// Diagnostic log lines
	AppendLog(ctx context.Context, downloadID uuid.UUID, stream, line string) error
	ListLogs(ctx context.Context, downloadID uuid.UUID, limit int) ([]model.LogLine, error)
	TrimLogs(ctx context.Context, downloadID uuid.UUID, keep int) error
}

// ListOptions configures download listing
type ListOptions struct {
	Status     *model.Status
	TopLevel   bool // exclude playlist items
	ActiveOnly bool
	Limit      int
	Offset     int
}
