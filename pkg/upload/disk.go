package upload

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DiskStore stores uploads on the local filesystem.
type DiskStore struct {
	dir     string
	maxSize int64

	mu    sync.RWMutex
	files map[string]*diskMeta
}

type diskMeta struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDiskStore creates a DiskStore rooted at dir. maxSize of 0 means
// no limit.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskStore{
		dir:     dir,
		maxSize: maxSize,
		files:   make(map[string]*diskMeta),
	}, nil
}

// Save stores the uploaded file and returns a temp ID.
func (s *DiskStore) Save(filename, contentType string, size int64, r io.Reader) (string, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}

	tempID := uuid.NewString()
	path := filepath.Join(s.dir, tempID)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var reader io.Reader = r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1) // +1 to detect overflow
	}

	written, err := io.Copy(f, reader)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(path)
		return "", ErrTooLarge
	}

	meta := &diskMeta{
		Filename:    filename,
		ContentType: contentType,
		Size:        written,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.files[tempID] = meta
	s.mu.Unlock()

	// Metadata also lands on disk so claims survive a restart.
	s.saveMeta(tempID, meta)

	return tempID, nil
}

// Claim retrieves and removes a temp file. The returned reader deletes
// the underlying file on Close.
func (s *DiskStore) Claim(tempID string) (*File, error) {
	s.mu.Lock()
	meta, ok := s.files[tempID]
	if ok {
		delete(s.files, tempID)
	}
	s.mu.Unlock()

	if !ok {
		var err error
		meta, err = s.loadMeta(tempID)
		if err != nil {
			return nil, ErrNotFound
		}
	}

	path := filepath.Join(s.dir, tempID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return &File{
		ID:          tempID,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Path:        path,
		Reader:      &deleteOnCloseReader{File: f, path: path, metaPath: s.metaPath(tempID)},
	}, nil
}

// Cleanup removes expired temp files.
func (s *DiskStore) Cleanup(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	swept := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for tempID, meta := range s.files {
		if meta.CreatedAt.Before(cutoff) {
			delete(s.files, tempID)
			os.Remove(filepath.Join(s.dir, tempID))
			os.Remove(s.metaPath(tempID))
			swept++
		}
	}

	// Scan the directory for orphaned files too.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return swept, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(filepath.Join(s.dir, entry.Name())) == nil {
				swept++
			}
		}
	}
	return swept, nil
}

func (s *DiskStore) metaPath(tempID string) string {
	return filepath.Join(s.dir, tempID+".meta")
}

func (s *DiskStore) saveMeta(tempID string, meta *diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath(tempID), data, 0644)
}

func (s *DiskStore) loadMeta(tempID string) (*diskMeta, error) {
	data, err := os.ReadFile(s.metaPath(tempID))
	if err != nil {
		return nil, err
	}
	var meta diskMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// deleteOnCloseReader wraps a file and deletes it when closed.
type deleteOnCloseReader struct {
	*os.File
	path     string
	metaPath string
}

func (r *deleteOnCloseReader) Close() error {
	err := r.File.Close()
	os.Remove(r.path)
	os.Remove(r.metaPath)
	return err
}
