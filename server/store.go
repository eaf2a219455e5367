package server

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
)

var ErrUploadNotFound = errors.New("upload not found")

// Upload 已上传的原图，Image 只读
type Upload struct {
	ID      string
	Image   *image.NRGBA
	Hash    string
	Created time.Time

	lastAccess time.Time
}

func NewUpload(img *image.NRGBA, hash string) *Upload {
	now := time.Now().UTC()
	return &Upload{
		ID:         ksuid.New().String(),
		Image:      img,
		Hash:       hash,
		Created:    now,
		lastAccess: now,
	}
}

func (u *Upload) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(u.lastAccess) >= maxAge
}

// UploadStore 上传图片的内存存储，Get 会刷新最后访问时间
type UploadStore struct {
	mutex   sync.RWMutex
	uploads map[string]*Upload
	now     func() time.Time
}

func NewUploadStore() *UploadStore {
	return &UploadStore{
		uploads: make(map[string]*Upload, 64),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *UploadStore) Get(id string) (*Upload, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	u, has := s.uploads[id]
	if !has {
		return nil, ErrUploadNotFound
	}
	u.lastAccess = s.now()
	return u, nil
}

func (s *UploadStore) Set(u *Upload) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	u.lastAccess = s.now()
	s.uploads[u.ID] = u
}

func (s *UploadStore) Delete(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, has := s.uploads[id]; !has {
		return ErrUploadNotFound
	}
	delete(s.uploads, id)
	return nil
}

// Filter 删除超过 maxAge 未访问的上传，返回删除数量
func (s *UploadStore) Filter(maxAge time.Duration) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	now := s.now()
	n := 0
	for id, u := range s.uploads {
		if u.Expired(now, maxAge) {
			delete(s.uploads, id)
			n++
		}
	}
	return n
}

func (s *UploadStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.uploads)
}
