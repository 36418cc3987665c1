package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"docingest/internal/domain"
)

// UploadStore keeps a private copy of every ingested file, named
// <uuid><ext> inside dir.
type UploadStore struct {
	dir     string
	maxSize int64
}

func NewUploadStore(dir string, maxSize int64) *UploadStore {
	return &UploadStore{dir: dir, maxSize: maxSize}
}

func (u *UploadStore) Dir() string {
	return u.dir
}

// Save copies r into the upload directory. Content larger than the limit
// is rejected with domain.ErrFileTooLarge and nothing is kept.
func (u *UploadStore) Save(filename string, r io.Reader) (domain.Document, error) {
	if err := os.MkdirAll(u.dir, 0755); err != nil {
		return domain.Document{}, fmt.Errorf("failed to create upload dir: %w", err)
	}

	id := uuid.NewString()
	path := filepath.Join(u.dir, id+filepath.Ext(filename))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to create %s: %w", path, err)
	}

	src := r
	if u.maxSize > 0 {
		src = io.LimitReader(r, u.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return domain.Document{}, fmt.Errorf("failed to store %s: %w", filename, err)
	}
	if u.maxSize > 0 && n > u.maxSize {
		os.Remove(path)
		return domain.Document{}, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrFileTooLarge, filename, u.maxSize)
	}

	return domain.Document{
		ID:       id,
		Filename: filepath.Base(filename),
		Path:     path,
		Size:     n,
	}, nil
}

// SaveFile stores a copy of the file at src.
func (u *UploadStore) SaveFile(src string) (domain.Document, error) {
	info, err := os.Stat(src)
	if err != nil {
		return domain.Document{}, err
	}
	if u.maxSize > 0 && info.Size() > u.maxSize {
		return domain.Document{}, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrFileTooLarge, filepath.Base(src), info.Size(), u.maxSize)
	}

	f, err := os.Open(src)
	if err != nil {
		return domain.Document{}, err
	}
	defer f.Close()

	return u.Save(filepath.Base(src), f)
}

// Remove deletes the stored copy of doc.
func (u *UploadStore) Remove(doc domain.Document) error {
	if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
