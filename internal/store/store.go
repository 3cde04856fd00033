package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/diffscope/internal/diff"
	"github.com/stwalsh4118/diffscope/internal/gitrepo"
	"github.com/stwalsh4118/diffscope/internal/logging"
)

// AggregateStorage defines the interface for storing and retrieving diff aggregates
type AggregateStorage interface {
	SaveAggregate(result *diff.Result, repo *gitrepo.Repository, oldRev, newRev string) (string, error)
	GetAggregate(id string) (*StoredAggregate, error)
	GetAggregatesByRepository(repoPath string) ([]*StoredAggregate, error)
}

// StoredAggregate represents a diff aggregate retrieved from the database
type StoredAggregate struct {
	ID             string
	RepositoryPath string
	RepositoryName string
	OldRevision    string
	NewRevision    string
	LinesAdded     int
	LinesDeleted   int
	FileCount      int
	FullPatch      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Files          []StoredFileChange
}

// StoredFileChange represents a per-file change row retrieved from the database
type StoredFileChange struct {
	ID           string
	DiffID       string
	NewPath      string
	OldPath      string
	Kind         string
	IsBinary     bool
	LinesAdded   int
	LinesDeleted int
	Patch        string
	CreatedAt    time.Time
}

// aggregateStorage implements AggregateStorage for database persistence
type aggregateStorage struct {
	db     *sql.DB
	logger logging.Logger
}

// NewAggregateStorage creates a new aggregate storage instance
func NewAggregateStorage(db *sql.DB, logger logging.Logger) (AggregateStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &aggregateStorage{
		db:     db,
		logger: logger.With("component", "aggregate_storage"),
	}, nil
}

// SaveAggregate stores a finalized aggregate and all its file changes in a
// single transaction, returning the aggregate row id
func (as *aggregateStorage) SaveAggregate(result *diff.Result, repo *gitrepo.Repository, oldRev, newRev string) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result cannot be nil")
	}
	if repo == nil {
		return "", fmt.Errorf("repository cannot be nil")
	}

	as.logger.Debug("storing aggregate", "repository", repo.Path, "old_revision", oldRev, "new_revision", newRev, "file_count", result.Len())

	tx, err := as.db.Begin()
	if err != nil {
		as.logger.Error("failed to begin transaction", "repository", repo.Path, "error", err)
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var fullPatchNull sql.NullString
	if result.Patch() != "" {
		fullPatchNull = sql.NullString{String: result.Patch(), Valid: true}
	}

	id := uuid.New().String()
	now := time.Now()

	_, err = tx.Exec(`
		INSERT INTO diffs (
			id, repository_path, repository_name, old_revision, new_revision,
			lines_added, lines_deleted, file_count, full_patch,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		repo.Path,
		repo.Name,
		oldRev,
		newRev,
		result.TotalLinesAdded(),
		result.TotalLinesDeleted(),
		result.Len(),
		fullPatchNull,
		now,
		now,
	)
	if err != nil {
		as.logger.Error("failed to store aggregate", "repository", repo.Path, "error", err)
		return "", fmt.Errorf("failed to store aggregate: %w", err)
	}

	for _, rec := range result.Files() {
		if err := as.storeFileChangeInTx(tx, rec, id); err != nil {
			as.logger.Error("failed to store file change", "diff_id", id, "path", rec.NewPath, "error", err)
			return "", fmt.Errorf("failed to store file change %s: %w", rec.NewPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		as.logger.Error("failed to commit transaction", "diff_id", id, "error", err)
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	as.logger.Info("stored aggregate", "diff_id", id, "repository", repo.Path, "file_count", result.Len())
	return id, nil
}

// storeFileChangeInTx stores one file change row within an existing transaction
func (as *aggregateStorage) storeFileChangeInTx(tx *sql.Tx, rec *diff.ChangeRecord, diffID string) error {
	var patchNull sql.NullString
	if rec.Patch() != "" {
		patchNull = sql.NullString{String: rec.Patch(), Valid: true}
	}

	isBinaryInt := 0
	if rec.Binary {
		isBinaryInt = 1
	}

	_, err := tx.Exec(`
		INSERT INTO diff_files (
			id, diff_id, new_path, old_path, kind, is_binary,
			lines_added, lines_deleted, patch, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(diff_id, new_path) DO UPDATE SET
			old_path = excluded.old_path,
			kind = excluded.kind,
			is_binary = excluded.is_binary,
			lines_added = excluded.lines_added,
			lines_deleted = excluded.lines_deleted,
			patch = excluded.patch
	`,
		uuid.New().String(),
		diffID,
		rec.NewPath,
		rec.OldPath,
		rec.Kind.String(),
		isBinaryInt,
		rec.LinesAdded,
		rec.LinesDeleted,
		patchNull,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert file change: %w", err)
	}

	as.logger.Debug("stored file change", "diff_id", diffID, "path", rec.NewPath, "kind", rec.Kind.String())
	return nil
}

// GetAggregate retrieves an aggregate by its id
func (as *aggregateStorage) GetAggregate(id string) (*StoredAggregate, error) {
	if id == "" {
		return nil, fmt.Errorf("aggregate id cannot be empty")
	}

	as.logger.Debug("retrieving aggregate", "diff_id", id)

	var agg StoredAggregate
	var fullPatchNull sql.NullString

	err := as.db.QueryRow(`
		SELECT id, repository_path, repository_name, old_revision, new_revision,
			lines_added, lines_deleted, file_count, full_patch,
			created_at, updated_at
		FROM diffs
		WHERE id = ?
	`, id).Scan(
		&agg.ID,
		&agg.RepositoryPath,
		&agg.RepositoryName,
		&agg.OldRevision,
		&agg.NewRevision,
		&agg.LinesAdded,
		&agg.LinesDeleted,
		&agg.FileCount,
		&fullPatchNull,
		&agg.CreatedAt,
		&agg.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			as.logger.Debug("aggregate not found", "diff_id", id)
			return nil, fmt.Errorf("aggregate not found: %s", id)
		}
		as.logger.Error("failed to query aggregate", "diff_id", id, "error", err)
		return nil, fmt.Errorf("failed to query aggregate: %w", err)
	}

	if fullPatchNull.Valid {
		agg.FullPatch = fullPatchNull.String
	}

	files, err := as.getFileChangesByDiffID(id)
	if err != nil {
		as.logger.Error("failed to get file changes", "diff_id", id, "error", err)
		return nil, fmt.Errorf("failed to get file changes: %w", err)
	}

	agg.Files = files
	as.logger.Info("retrieved aggregate", "diff_id", id, "file_count", len(files))
	return &agg, nil
}

// GetAggregatesByRepository retrieves all aggregates stored for a repository,
// newest first
func (as *aggregateStorage) GetAggregatesByRepository(repoPath string) ([]*StoredAggregate, error) {
	if repoPath == "" {
		return nil, fmt.Errorf("repository path cannot be empty")
	}

	as.logger.Debug("retrieving aggregates by repository", "repository_path", repoPath)

	rows, err := as.db.Query(`
		SELECT id, repository_path, repository_name, old_revision, new_revision,
			lines_added, lines_deleted, file_count, full_patch,
			created_at, updated_at
		FROM diffs
		WHERE repository_path = ?
		ORDER BY created_at DESC
	`, repoPath)
	if err != nil {
		as.logger.Error("failed to query aggregates", "repository_path", repoPath, "error", err)
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []*StoredAggregate
	var skippedCount int
	for rows.Next() {
		var agg StoredAggregate
		var fullPatchNull sql.NullString

		err := rows.Scan(
			&agg.ID,
			&agg.RepositoryPath,
			&agg.RepositoryName,
			&agg.OldRevision,
			&agg.NewRevision,
			&agg.LinesAdded,
			&agg.LinesDeleted,
			&agg.FileCount,
			&fullPatchNull,
			&agg.CreatedAt,
			&agg.UpdatedAt,
		)
		if err != nil {
			as.logger.Warn("failed to scan aggregate row, skipping", "repository_path", repoPath, "error", err)
			skippedCount++
			continue
		}

		if fullPatchNull.Valid {
			agg.FullPatch = fullPatchNull.String
		}

		files, err := as.getFileChangesByDiffID(agg.ID)
		if err != nil {
			as.logger.Warn("failed to get file changes for aggregate, skipping", "diff_id", agg.ID, "error", err)
			skippedCount++
			continue
		}

		agg.Files = files
		aggs = append(aggs, &agg)
	}

	if err := rows.Err(); err != nil {
		as.logger.Error("error iterating aggregates", "repository_path", repoPath, "error", err)
		return nil, fmt.Errorf("error iterating aggregates: %w", err)
	}

	if skippedCount > 0 {
		as.logger.Warn("retrieved aggregates with skipped entries", "repository_path", repoPath, "successful", len(aggs), "skipped", skippedCount)
	} else {
		as.logger.Info("retrieved aggregates", "repository_path", repoPath, "count", len(aggs))
	}
	return aggs, nil
}

// getFileChangesByDiffID retrieves all file change rows for an aggregate
func (as *aggregateStorage) getFileChangesByDiffID(diffID string) ([]StoredFileChange, error) {
	rows, err := as.db.Query(`
		SELECT id, diff_id, new_path, old_path, kind, is_binary,
			lines_added, lines_deleted, patch, created_at
		FROM diff_files
		WHERE diff_id = ?
		ORDER BY new_path ASC
	`, diffID)
	if err != nil {
		as.logger.Error("failed to query file changes", "diff_id", diffID, "error", err)
		return nil, fmt.Errorf("failed to query file changes: %w", err)
	}
	defer rows.Close()

	var files []StoredFileChange
	for rows.Next() {
		var file StoredFileChange
		var patchNull sql.NullString
		var isBinaryInt int

		err := rows.Scan(
			&file.ID,
			&file.DiffID,
			&file.NewPath,
			&file.OldPath,
			&file.Kind,
			&isBinaryInt,
			&file.LinesAdded,
			&file.LinesDeleted,
			&patchNull,
			&file.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file change row: %w", err)
		}

		if patchNull.Valid {
			file.Patch = patchNull.String
		}
		file.IsBinary = isBinaryInt == 1

		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		as.logger.Error("error iterating file changes", "diff_id", diffID, "error", err)
		return nil, fmt.Errorf("error iterating file changes: %w", err)
	}

	return files, nil
}
