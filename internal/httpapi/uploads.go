package httpapi

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".zip":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
}

func writeUploadError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error":   "UPLOAD_ERROR",
		"message": message,
		"details": map[string]string{"code": code},
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeUploadError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds the upload size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeUploadError(w, http.StatusBadRequest, "UPLOAD_ERROR", "missing file field")
		return
	}
	defer file.Close()

	if header.Size > s.cfg.MaxUploadBytes {
		writeUploadError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds the upload size limit")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		writeUploadError(w, http.StatusBadRequest, "INVALID_FILE_TYPE", "file type not allowed")
		return
	}

	// Prefix with a fresh id so colliding client filenames never
	// overwrite each other.
	name := uuid.NewString()[:8] + "-" + filepath.Base(header.Filename)
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.logger.Error("failed to create upload dir", "error", err)
		writeUploadError(w, http.StatusInternalServerError, "UPLOAD_ERROR", "could not store file")
		return
	}

	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, name))
	if err != nil {
		s.logger.Error("failed to create upload file", "error", err)
		writeUploadError(w, http.StatusInternalServerError, "UPLOAD_ERROR", "could not store file")
		return
	}
	defer dst.Close()

	size, err := io.Copy(dst, file)
	if err != nil {
		s.logger.Error("failed to write upload", "error", err)
		writeUploadError(w, http.StatusInternalServerError, "UPLOAD_ERROR", "could not store file")
		return
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s.logger.Info("file uploaded", "name", name, "size", size)
	writeJSON(w, http.StatusCreated, map[string]any{
		"name": name,
		"url":  "/uploads/" + name,
		"size": size,
		"type": contentType,
	})
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(chi.URLParam(r, "filename"))
	if filename == "" || filename == "." {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	if err := os.Remove(filepath.Join(s.cfg.UploadDir, filename)); err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		s.logger.Error("failed to delete upload", "name", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
