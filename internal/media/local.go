package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader stores files on the local filesystem, typically the
// recommendations output directory of the CLI or a directory served as
// static files by the API.
type LocalUploader struct {
	BaseDir   string
	PublicURL string
}

// NewLocalUploader constructs an uploader that writes to the provided
// directory. If baseDir is empty, os.TempDir() is used.
func NewLocalUploader(baseDir, publicURL string) (*LocalUploader, error) {
	dir := baseDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local media dir: %w", err)
	}
	return &LocalUploader{
		BaseDir:   dir,
		PublicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Upload writes the incoming content under its sanitized filename and
// returns the file path as the key.
func (l *LocalUploader) Upload(_ context.Context, input UploadInput) (UploadResult, error) {
	if input.Body == nil {
		return UploadResult{}, fmt.Errorf("upload body is required")
	}

	ext := strings.ToLower(filepath.Ext(input.Filename))
	base := SanitizeFilename(strings.TrimSuffix(filepath.Base(input.Filename), ext))
	name := base + ext

	target := filepath.Join(l.BaseDir, name)
	file, err := os.Create(target)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create media file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, input.Body); err != nil {
		os.Remove(target)
		return UploadResult{}, fmt.Errorf("write media file: %w", err)
	}

	result := UploadResult{Key: target}
	if l.PublicURL != "" {
		result.URL = fmt.Sprintf("%s/%s", l.PublicURL, name)
	}
	return result, nil
}

// Clear removes every file previously written to the base directory.
func (l *LocalUploader) Clear() error {
	entries, err := os.ReadDir(l.BaseDir)
	if err != nil {
		return fmt.Errorf("read media dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(l.BaseDir, entry.Name())); err != nil {
			return fmt.Errorf("clear media dir: %w", err)
		}
	}
	return nil
}
