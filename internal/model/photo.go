package model

import "time"

// TaskCompletionPhoto records one uploaded evidence image. FilePath and
// ThumbnailPath are web paths under /uploads/, not filesystem paths.
type TaskCompletionPhoto struct {
	ID               int64     `json:"id"`
	AssignmentID     int64     `json:"task_assignment_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FilePath         string    `json:"file_path"`
	ThumbnailPath    *string   `json:"thumbnail_path"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type"`
	UploadedAt       time.Time `json:"uploaded_at"`
}
