package storage

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/scangallery/internal/models"
)

// Blob is binary image data held behind an object URL
type Blob struct {
	Data     []byte
	MIMEType string
}

// BlobStore keeps blobs addressable by object URL until they are revoked
type BlobStore struct {
	blobs map[string]Blob
	mu    sync.RWMutex
}

func New() *BlobStore {
	return &BlobStore{
		blobs: make(map[string]Blob),
	}
}

// CreateObjectURL stores a copy of data and returns the object URL for it
func (s *BlobStore) CreateObjectURL(data []byte, mimeType string) models.ImageSource {
	id := uuid.New().String()
	blob := Blob{
		Data:     append([]byte(nil), data...),
		MIMEType: mimeType,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = blob
	return models.ImageSource(models.ObjectURLPrefix + id)
}

// Get looks a blob up by its id (the object URL without prefix)
func (s *BlobStore) Get(id string) (Blob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, exists := s.blobs[id]
	return blob, exists
}

// RevokeObjectURL releases the blob behind src. Non object URLs are ignored.
func (s *BlobStore) RevokeObjectURL(src models.ImageSource) {
	if !src.IsObjectURL() {
		return
	}
	id := string(src)[len(models.ObjectURLPrefix):]

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
}

func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
