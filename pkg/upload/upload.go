// Package upload handles satellite-image intake for analysis. Files are
// parked in a temporary store under a random ID until the analysis
// pipeline claims them; unclaimed files expire.
package upload

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when a temp file doesn't exist.
var ErrNotFound = errors.New("upload: file not found")

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("upload: file too large")

// ErrUnsupportedType is returned for non-image uploads.
var ErrUnsupportedType = errors.New("upload: unsupported content type")

// Store is the interface for upload storage backends.
// DiskStore keeps files locally; S3Store parks them in a bucket.
type Store interface {
	// Save stores the uploaded file and returns a temp ID.
	// The file is stored temporarily until Claim is called.
	Save(filename string, contentType string, size int64, r io.Reader) (tempID string, err error)

	// Claim retrieves and removes a temp file, returning a file handle.
	Claim(tempID string) (*File, error)

	// Cleanup removes expired temp files, returning how many were
	// swept. Call it periodically.
	Cleanup(maxAge time.Duration) (int, error)
}

// File represents an uploaded satellite image.
type File struct {
	// ID is the unique identifier for this upload.
	ID string

	// Filename is the original filename from the client.
	Filename string

	// ContentType is the MIME type of the file.
	ContentType string

	// Size is the file size in bytes.
	Size int64

	// Path is the local filesystem path (for DiskStore).
	Path string

	// URL is the remote URL (for S3 storage).
	URL string

	// Reader provides access to the file contents.
	// May be nil if the file is stored on disk (use Path instead).
	Reader io.ReadCloser
}

// Close closes the file reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// Config holds configuration for the upload handler.
type Config struct {
	// MaxFileSize is the maximum allowed file size in bytes.
	// Default: 16MB, matching the analysis pipeline's input cap.
	MaxFileSize int64

	// AllowedTypes is the list of accepted MIME type prefixes.
	// Default: image/ only.
	AllowedTypes []string

	// TempExpiry is how long temp files live before cleanup.
	// Default: 1 hour.
	TempExpiry time.Duration
}

// DefaultConfig returns a Config with the pipeline's defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize:  16 * 1024 * 1024, // 16MB
		AllowedTypes: []string{"image/"},
		TempExpiry:   time.Hour,
	}
}

func (c *Config) typeAllowed(contentType string) bool {
	if len(c.AllowedTypes) == 0 {
		return true
	}
	for _, prefix := range c.AllowedTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// Handler returns an http.Handler for image uploads with the default
// configuration. Mount it on the router:
//
//	r.Post("/api/upload", upload.Handler(store).ServeHTTP)
//
// The handler expects a multipart form with a "file" field and replies
// with JSON: {"temp_id": "..."}.
func Handler(store Store) http.Handler {
	return HandlerWithConfig(store, DefaultConfig())
}

// HandlerWithConfig returns an upload handler with custom configuration.
func HandlerWithConfig(store Store, config *Config) http.Handler {
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultConfig().MaxFileSize
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Limit request body size before parsing.
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			if err.Error() == "http: request body too large" {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "No file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !config.typeAllowed(contentType) {
			http.Error(w, "Unsupported file type", http.StatusUnsupportedMediaType)
			return
		}

		tempID, err := store.Save(header.Filename, contentType, header.Size, file)
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Upload failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"temp_id": tempID,
		})
	})
}
