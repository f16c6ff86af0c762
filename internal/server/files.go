// ABOUTME: File endpoints under /api/files scoped to the caller's API key
// ABOUTME: Uploads are multipart with a "file" field and are stored whole in SQLite

package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/schmitech/orbit-chat/internal/auth"
	"github.com/schmitech/orbit-chat/internal/store"
)

const (
	// maxUploadSize bounds a single upload.
	maxUploadSize = 32 << 20
	// chunkSize is the unit chunk_count is reported in.
	chunkSize   = 4096
	storageType = "sqlite"
)

type uploadResponse struct {
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	FileSize   int64  `json:"file_size"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message"`
}

type fileInfoResponse struct {
	FileID           string `json:"file_id"`
	Filename         string `json:"filename"`
	MimeType         string `json:"mime_type"`
	FileSize         int64  `json:"file_size"`
	UploadTimestamp  string `json:"upload_timestamp"`
	ProcessingStatus string `json:"processing_status"`
	ChunkCount       int    `json:"chunk_count"`
	StorageType      string `json:"storage_type"`
}

type deleteFileResponse struct {
	Message string `json:"message"`
	FileID  string `json:"file_id"`
}

func toFileInfo(f *store.File) fileInfoResponse {
	return fileInfoResponse{
		FileID:           f.ID,
		Filename:         f.Filename,
		MimeType:         f.MimeType,
		FileSize:         f.Size,
		UploadTimestamp:  formatTimestamp(f.CreatedAt),
		ProcessingStatus: f.Status,
		ChunkCount:       f.ChunkCount,
		StorageType:      storageType,
	}
}

// detectMimeType prefers the part's declared type, then the file extension.
func detectMimeType(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// handleUploadFile handles POST /api/files/upload.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)

	part, header, err := r.FormFile("file")
	if err != nil {
		sendError(w, http.StatusBadRequest, "A multipart \"file\" field is required")
		return
	}
	defer part.Close()

	if header.Size > maxUploadSize {
		sendError(w, http.StatusRequestEntityTooLarge, "File exceeds the maximum upload size")
		return
	}

	content, err := io.ReadAll(part)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	filename := filepath.Base(header.Filename)
	f := &store.File{
		ID:         uuid.New().String(),
		APIKey:     auth.KeyPrefixFromContext(r.Context()),
		Filename:   filename,
		MimeType:   detectMimeType(header.Header.Get("Content-Type"), filename),
		Size:       int64(len(content)),
		Status:     store.FileStatusCompleted,
		ChunkCount: (len(content) + chunkSize - 1) / chunkSize,
		Content:    content,
		CreatedAt:  s.now(),
	}

	if err := s.store.CreateFile(r.Context(), f); err != nil {
		s.logger.Error("failed to store file", "filename", filename, "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("file uploaded", "file_id", f.ID, "filename", filename, "size", f.Size)

	writeJSON(w, http.StatusOK, uploadResponse{
		FileID:     f.ID,
		Filename:   f.Filename,
		MimeType:   f.MimeType,
		FileSize:   f.Size,
		Status:     f.Status,
		ChunkCount: f.ChunkCount,
		Message:    "File uploaded successfully",
	})
}

// handleListFiles handles GET /api/files.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListFiles(r.Context(), auth.KeyPrefixFromContext(r.Context()))
	if err != nil {
		s.logger.Error("failed to list files", "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]fileInfoResponse, 0, len(files))
	for _, f := range files {
		resp = append(resp, toFileInfo(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ownedFile loads a file the caller may see, writing 404 otherwise.
func (s *Server) ownedFile(w http.ResponseWriter, r *http.Request) (*store.File, bool) {
	f, err := s.store.GetFile(r.Context(), r.PathValue("file_id"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && f.APIKey != auth.KeyPrefixFromContext(r.Context())) {
		sendError(w, http.StatusNotFound, "File not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to get file", "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return f, true
}

// handleGetFile handles GET /api/files/{file_id}.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, ok := s.ownedFile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toFileInfo(f))
}

// handleDeleteFile handles DELETE /api/files/{file_id}.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	f, ok := s.ownedFile(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteFile(r.Context(), f.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("failed to delete file", "file_id", f.ID, "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, deleteFileResponse{
		Message: "File deleted successfully",
		FileID:  f.ID,
	})
}
