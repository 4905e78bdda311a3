package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/downlinkhq/downlink/internal/model"
)

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(db *DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const downloadColumns = `id, created_at, updated_at, source_url, source_kind, parent_id,
	       title, uploader, duration_seconds, status, phase,
	       progress_percent, bytes_downloaded, bytes_total, speed_bps, eta_seconds,
	       preset_id, output_dir, final_path, error_code, error_message`

// CreateDownload inserts a new download row
func (r *SQLiteRepository) CreateDownload(ctx context.Context, d *model.Download) error {
	query := `
		INSERT INTO downloads (` + downloadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	var parentID interface{}
	if d.ParentID != nil {
		parentID = d.ParentID.String()
	}
	var errorCode, errorMessage interface{}
	if d.LastError != nil {
		errorCode = string(d.LastError.Code)
		errorMessage = d.LastError.Message
	}
	var finalPath interface{}
	if d.FinalPath != "" {
		finalPath = d.FinalPath
	}

	_, err := r.db.db.ExecContext(ctx, query,
		d.ID.String(),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
		d.SourceURL,
		string(d.SourceKind),
		parentID,
		d.Title,
		d.Uploader,
		d.DurationSeconds,
		string(d.Status),
		string(d.Phase),
		d.Progress.Percent,
		d.Progress.BytesDownloaded,
		d.Progress.BytesTotal,
		d.Progress.SpeedBps,
		d.Progress.ETASeconds,
		d.PresetID,
		d.OutputDir,
		finalPath,
		errorCode,
		errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}
	return nil
}

// GetDownload retrieves a download by ID. Returns (nil, nil) when absent.
func (r *SQLiteRepository) GetDownload(ctx context.Context, id uuid.UUID) (*model.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE id = ?`

	row := r.db.db.QueryRowContext(ctx, query, id.String())
	d, err := scanDownload(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get download: %w", err)
	}
	return d, nil
}

// ListDownloads lists downloads with optional filters, newest first
func (r *SQLiteRepository) ListDownloads(ctx context.Context, opts ListOptions) ([]model.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE 1=1`
	args := []interface{}{}

	if opts.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*opts.Status))
	}
	if opts.TopLevel {
		query += " AND parent_id IS NULL"
	}
	if opts.ActiveOnly {
		query += " AND status IN ('fetching', 'ready', 'downloading', 'postprocessing')"
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer rows.Close()

	return collectDownloads(rows)
}

// ListChildren lists a playlist parent's items in insertion order
func (r *SQLiteRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]model.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE parent_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := r.db.db.QueryContext(ctx, query, parentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	return collectDownloads(rows)
}

// UpdateDownload writes the full mutable state of a download back to its row
func (r *SQLiteRepository) UpdateDownload(ctx context.Context, d *model.Download) error {
	query := `
		UPDATE downloads
		SET updated_at = ?, title = ?, uploader = ?, duration_seconds = ?,
		    status = ?, phase = ?,
		    progress_percent = ?, bytes_downloaded = ?, bytes_total = ?,
		    speed_bps = ?, eta_seconds = ?,
		    preset_id = ?, output_dir = ?, final_path = ?,
		    error_code = ?, error_message = ?
		WHERE id = ?
	`

	d.UpdatedAt = time.Now().UTC()

	var errorCode, errorMessage interface{}
	if d.LastError != nil {
		errorCode = string(d.LastError.Code)
		errorMessage = d.LastError.Message
	}
	var finalPath interface{}
	if d.FinalPath != "" {
		finalPath = d.FinalPath
	}

	_, err := r.db.db.ExecContext(ctx, query,
		d.UpdatedAt.Format(time.RFC3339),
		d.Title,
		d.Uploader,
		d.DurationSeconds,
		string(d.Status),
		string(d.Phase),
		d.Progress.Percent,
		d.Progress.BytesDownloaded,
		d.Progress.BytesTotal,
		d.Progress.SpeedBps,
		d.Progress.ETASeconds,
		d.PresetID,
		d.OutputDir,
		finalPath,
		errorCode,
		errorMessage,
		d.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}
	return nil
}

// UpdateStatus updates only status and phase
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status, phase model.Phase) error {
	query := `UPDATE downloads SET status = ?, phase = ?, updated_at = ? WHERE id = ?`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.db.ExecContext(ctx, query, string(status), string(phase), now, id.String())
	if err != nil {
		return fmt.Errorf("failed to update download status: %w", err)
	}
	return nil
}

// UpdateProgress updates only the progress snapshot
func (r *SQLiteRepository) UpdateProgress(ctx context.Context, id uuid.UUID, p model.Progress) error {
	query := `
		UPDATE downloads
		SET progress_percent = ?, bytes_downloaded = ?, bytes_total = ?,
		    speed_bps = ?, eta_seconds = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.db.ExecContext(ctx, query,
		p.Percent, p.BytesDownloaded, p.BytesTotal, p.SpeedBps, p.ETASeconds, now, id.String())
	if err != nil {
		return fmt.Errorf("failed to update download progress: %w", err)
	}
	return nil
}

// DeleteDownload removes a download; children and logs cascade
func (r *SQLiteRepository) DeleteDownload(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.db.ExecContext(ctx, `DELETE FROM downloads WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}
	return nil
}

// DeleteByStatus removes every download in the given status; used by queue
// housekeeping (clear completed, clear canceled). Logs and children cascade.
func (r *SQLiteRepository) DeleteByStatus(ctx context.Context, status model.Status) (int64, error) {
	result, err := r.db.db.ExecContext(ctx, `DELETE FROM downloads WHERE status = ?`, string(status))
	if err != nil {
		return 0, fmt.Errorf("failed to delete downloads by status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted downloads: %w", err)
	}
	return n, nil
}

// CountByStatus returns how many downloads sit in each status.
func (r *SQLiteRepository) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := r.db.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM downloads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count downloads: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[model.ParseStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return counts, nil
}

// ResetActiveToQueued returns downloads left active by a previous run to the
// waiting line. Playlist parents stuck in fetching are re-queued too; the
// scheduler re-runs their expansion.
func (r *SQLiteRepository) ResetActiveToQueued(ctx context.Context) (int64, error) {
	query := `
		UPDATE downloads
		SET status = 'queued', phase = 'Queued', speed_bps = -1, eta_seconds = -1, updated_at = ?
		WHERE status IN ('fetching', 'ready', 'downloading', 'postprocessing')
	`

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to reset active downloads: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reset downloads: %w", err)
	}
	return n, nil
}

// AppendLog stores one captured output line
func (r *SQLiteRepository) AppendLog(ctx context.Context, downloadID uuid.UUID, stream, line string) error {
	query := `INSERT INTO download_logs (download_id, ts, stream, line) VALUES (?, ?, ?, ?)`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.db.ExecContext(ctx, query, downloadID.String(), now, stream, line)
	if err != nil {
		return fmt.Errorf("failed to insert log line: %w", err)
	}
	return nil
}

// ListLogs returns the most recent log lines in chronological order
func (r *SQLiteRepository) ListLogs(ctx context.Context, downloadID uuid.UUID, limit int) ([]model.LogLine, error) {
	query := `
		SELECT id, download_id, ts, stream, line
		FROM (
			SELECT id, download_id, ts, stream, line
			FROM download_logs
			WHERE download_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC
	`
	if limit <= 0 {
		limit = 2000
	}

	rows, err := r.db.db.QueryContext(ctx, query, downloadID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list log lines: %w", err)
	}
	defer rows.Close()

	var lines []model.LogLine
	for rows.Next() {
		var l model.LogLine
		var idStr, tsStr string

		if err := rows.Scan(&l.ID, &idStr, &tsStr, &l.Stream, &l.Line); err != nil {
			return nil, fmt.Errorf("failed to scan log line: %w", err)
		}
		if id, err := uuid.Parse(idStr); err == nil {
			l.DownloadID = id
		}
		if ts, err := time.Parse(time.RFC3339, tsStr); err == nil {
			l.Timestamp = ts
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log lines: %w", err)
	}
	return lines, nil
}

// TrimLogs drops all but the newest keep lines for a download
func (r *SQLiteRepository) TrimLogs(ctx context.Context, downloadID uuid.UUID, keep int) error {
	if keep <= 0 {
		keep = 2000
	}
	query := `
		DELETE FROM download_logs
		WHERE download_id = ?
		  AND id NOT IN (
			SELECT id FROM download_logs
			WHERE download_id = ?
			ORDER BY id DESC
			LIMIT ?
		  )
	`

	_, err := r.db.db.ExecContext(ctx, query, downloadID.String(), downloadID.String(), keep)
	if err != nil {
		return fmt.Errorf("failed to trim log lines: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDownload(row rowScanner) (*model.Download, error) {
	var d model.Download
	var idStr, createdAt, updatedAt, kindStr, statusStr string
	var parentID, phase, title, uploader, finalPath, errorCode, errorMessage sql.NullString
	var duration sql.NullInt64

	err := row.Scan(
		&idStr,
		&createdAt,
		&updatedAt,
		&d.SourceURL,
		&kindStr,
		&parentID,
		&title,
		&uploader,
		&duration,
		&statusStr,
		&phase,
		&d.Progress.Percent,
		&d.Progress.BytesDownloaded,
		&d.Progress.BytesTotal,
		&d.Progress.SpeedBps,
		&d.Progress.ETASeconds,
		&d.PresetID,
		&d.OutputDir,
		&finalPath,
		&errorCode,
		&errorMessage,
	)
	if err != nil {
		return nil, err
	}

	if id, err := uuid.Parse(idStr); err == nil {
		d.ID = id
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		d.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		d.UpdatedAt = t
	}
	d.SourceKind = model.ParseSourceKind(kindStr)
	d.Status = model.ParseStatus(statusStr)

	if parentID.Valid {
		if pid, err := uuid.Parse(parentID.String); err == nil {
			d.ParentID = &pid
		}
	}
	if title.Valid {
		d.Title = title.String
	}
	if uploader.Valid {
		d.Uploader = uploader.String
	}
	if duration.Valid {
		d.DurationSeconds = duration.Int64
	}
	if phase.Valid {
		d.Phase = model.Phase(phase.String)
	}
	if finalPath.Valid {
		d.FinalPath = finalPath.String
	}
	if errorCode.Valid {
		msg := ""
		if errorMessage.Valid {
			msg = errorMessage.String
		}
		d.LastError = model.NewUserFacingError(model.ErrorCode(errorCode.String), msg)
	}

	return &d, nil
}

func collectDownloads(rows *sql.Rows) ([]model.Download, error) {
	var downloads []model.Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		downloads = append(downloads, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating downloads: %w", err)
	}
	return downloads, nil
}
