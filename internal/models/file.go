package models

import "time"

// File is a stored upload attached to a request. ObjectKey locates the blob
// in the object store; clients only ever see signed URLs derived from it.
type File struct {
	ID           int       `db:"id" json:"id"`
	RequestID    int       `db:"request_id" json:"request_id"`
	UploaderID   int       `db:"uploader_id" json:"uploader_id"`
	ObjectKey    string    `db:"object_key" json:"-"`
	OriginalName string    `db:"original_name" json:"original_name"`
	ContentType  string    `db:"content_type" json:"content_type"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
