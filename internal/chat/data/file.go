package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"converse/internal/pkg/errors"

	"go.uber.org/zap"
)

// FileStore uploads project attachments the assistant can draw on
type FileStore struct {
	client *Client
}

// NewFileStore creates a file store sharing the API client
func NewFileStore(client *Client) *FileStore {
	return &FileStore{client: client}
}

// UploadFile attaches a local file to a project via multipart upload
func (s *FileStore) UploadFile(ctx context.Context, projectID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileUploadFailed, path)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("uploaded_file", filepath.Base(path))
	if err != nil {
		return errors.Wrap(err, errors.ErrFileUploadFailed)
	}
	if _, err := io.Copy(part, f); err != nil {
		return errors.Wrap(err, errors.ErrFileUploadFailed)
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrFileUploadFailed)
	}

	url := s.client.url(fmt.Sprintf("/projects/%s/files", projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileUploadFailed)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileUploadFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileUploadFailed)
	}
	if err := statusError(resp.StatusCode, body); err != nil {
		return err
	}

	s.client.logger.Info("file uploaded",
		zap.String("project_id", projectID),
		zap.String("file", filepath.Base(path)),
	)
	return nil
}
