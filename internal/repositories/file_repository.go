package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"portal-service/internal/models"
)

var ErrFileNotFound = errors.New("file not found")

// FileRepository abstracts file-record persistence.
type FileRepository interface {
	CreateFile(ctx context.Context, file models.File) (models.File, error)
	GetFile(ctx context.Context, fileID int) (models.File, error)
	ListFilesForRequest(ctx context.Context, requestID int) ([]models.File, error)
	ListFilesForUploader(ctx context.Context, uploaderID int) ([]models.File, error)
	DeleteFile(ctx context.Context, fileID int) error
}

// FileRepo is a sqlx implementation of FileRepository.
type FileRepo struct {
	db *sqlx.DB
}

// NewFileRepo constructs a FileRepo.
func NewFileRepo(db *sqlx.DB) *FileRepo {
	return &FileRepo{db: db}
}

const fileColumns = `id, request_id, uploader_id, object_key, original_name, content_type, size_bytes, created_at`

// CreateFile inserts a file record.
func (r *FileRepo) CreateFile(ctx context.Context, file models.File) (models.File, error) {
	var stored models.File
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO files (request_id, uploader_id, object_key, original_name, content_type, size_bytes)
         VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+fileColumns,
		file.RequestID, file.UploaderID, file.ObjectKey, file.OriginalName, file.ContentType, file.SizeBytes).
		StructScan(&stored)
	return stored, err
}

// GetFile fetches a file record by id.
func (r *FileRepo) GetFile(ctx context.Context, fileID int) (models.File, error) {
	var file models.File
	err := r.db.GetContext(ctx, &file, `SELECT `+fileColumns+` FROM files WHERE id=$1`, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.File{}, ErrFileNotFound
	}
	return file, err
}

// ListFilesForRequest returns a request's files, newest first.
func (r *FileRepo) ListFilesForRequest(ctx context.Context, requestID int) ([]models.File, error) {
	var files []models.File
	err := r.db.SelectContext(ctx, &files,
		`SELECT `+fileColumns+` FROM files WHERE request_id=$1 ORDER BY created_at DESC`, requestID)
	return files, err
}

// ListFilesForUploader returns files uploaded by one user, newest first.
func (r *FileRepo) ListFilesForUploader(ctx context.Context, uploaderID int) ([]models.File, error) {
	var files []models.File
	err := r.db.SelectContext(ctx, &files,
		`SELECT `+fileColumns+` FROM files WHERE uploader_id=$1 ORDER BY created_at DESC`, uploaderID)
	return files, err
}

// DeleteFile removes a file record.
func (r *FileRepo) DeleteFile(ctx context.Context, fileID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, fileID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrFileNotFound
	}
	return nil
}
