package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Bushidonj/kanban-board/internal/kanban"
	"github.com/Bushidonj/kanban-board/internal/transport"
)

// Machine codes carried by upload failures.
const (
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeUploadError     = "UPLOAD_ERROR"
)

// UploadError is a structured upload failure. The caller decides whether
// to offer a retry based on Code.
type UploadError struct {
	Code    string
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed (%s): %s", e.Code, e.Message)
}

// UploadAttachment uploads a file and returns the stored attachment
// metadata.
func (r *Repository) UploadAttachment(ctx context.Context, filename string, content io.Reader) (kanban.Attachment, error) {
	var att kanban.Attachment
	err := r.api.PostMultipart(ctx, "/uploads", "file", filename, content, &att)
	if err != nil {
		var statusErr *transport.StatusError
		if errors.As(err, &statusErr) {
			return kanban.Attachment{}, parseUploadError(statusErr.Body)
		}
		return kanban.Attachment{}, fmt.Errorf("uploading %s: %w", filename, err)
	}
	return att, nil
}

// RemoveAttachment deletes an uploaded file by name.
func (r *Repository) RemoveAttachment(ctx context.Context, filename string) error {
	if err := r.api.Delete(ctx, "/uploads/"+filename); err != nil {
		return fmt.Errorf("removing attachment %s: %w", filename, err)
	}
	return nil
}

// parseUploadError extracts the machine code from the error body. The
// backend nests the code under details, older versions put it at the
// top level.
func parseUploadError(body []byte) *UploadError {
	var payload struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			Code string `json:"code"`
		} `json:"details"`
	}
	_ = json.Unmarshal(body, &payload)

	code := payload.Details.Code
	if code == "" {
		code = payload.Code
	}
	if code == "" {
		code = CodeUploadError
	}
	message := payload.Message
	if message == "" {
		message = "upload failed"
	}
	return &UploadError{Code: code, Message: message}
}
