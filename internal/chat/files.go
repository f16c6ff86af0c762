// ABOUTME: Optional file operations: upload, list, inspect, and delete
// ABOUTME: Uploads use a multipart body; other calls reuse the JSON admin exchange

package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// UploadResult is the server's reply to an upload.
type UploadResult struct {
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	FileSize   int64  `json:"file_size"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message"`
}

// FileInfo describes a stored file.
type FileInfo struct {
	FileID           string `json:"file_id"`
	Filename         string `json:"filename"`
	MimeType         string `json:"mime_type"`
	FileSize         int64  `json:"file_size"`
	UploadTimestamp  string `json:"upload_timestamp"`
	ProcessingStatus string `json:"processing_status"`
	ChunkCount       int    `json:"chunk_count"`
	StorageType      string `json:"storage_type"`
}

// DeleteFileResult is the server's reply to a file delete.
type DeleteFileResult struct {
	Message string `json:"message"`
	FileID  string `json:"file_id"`
}

// UploadFile uploads the contents of r under filename. An empty mimeType
// lets the server detect it.
func (c *Client) UploadFile(ctx context.Context, filename, mimeType string, r io.Reader) (*UploadResult, error) {
	if err := c.require(CapabilityFiles); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part := make(textproto.MIMEHeader)
	part.Set("Content-Disposition", multipart.FileContentDisposition("file", filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	part.Set("Content-Type", mimeType)

	pw, err := mw.CreatePart(part)
	if err != nil {
		return nil, fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := io.Copy(pw, r); err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/files/upload"), &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.headers(c.SessionID())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListFiles returns the files visible to the configured API key.
func (c *Client) ListFiles(ctx context.Context) ([]FileInfo, error) {
	if err := c.require(CapabilityFiles); err != nil {
		return nil, err
	}
	var files []FileInfo
	if err := c.doJSON(ctx, http.MethodGet, c.filesURL(""), c.SessionID(), nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// GetFileInfo returns metadata for one file.
func (c *Client) GetFileInfo(ctx context.Context, fileID string) (*FileInfo, error) {
	if err := c.require(CapabilityFiles); err != nil {
		return nil, err
	}
	if fileID == "" {
		return nil, ErrEmptyID
	}
	var info FileInfo
	if err := c.doJSON(ctx, http.MethodGet, c.filesURL(fileID), c.SessionID(), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteFile removes a file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) (*DeleteFileResult, error) {
	if err := c.require(CapabilityFiles); err != nil {
		return nil, err
	}
	if fileID == "" {
		return nil, ErrEmptyID
	}
	var result DeleteFileResult
	if err := c.doJSON(ctx, http.MethodDelete, c.filesURL(fileID), c.SessionID(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
