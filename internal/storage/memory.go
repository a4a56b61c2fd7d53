package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryService keeps objects in process memory, for local runs without S3.
type MemoryService struct {
	mu      sync.RWMutex
	now     func() time.Time
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

func NewMemoryService() *MemoryService {
	return &MemoryService{now: time.Now, objects: make(map[string]memoryObject)}
}

func (m *MemoryService) PutObject(_ context.Context, body io.Reader, opts PutOptions) (string, error) {
	if opts.Bucket == "" {
		return "", ErrBucketRequired
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[opts.Bucket+"/"+opts.Key] = memoryObject{data: data, contentType: opts.ContentType, modified: m.now()}
	return fmt.Sprintf("mem://%s/%s", opts.Bucket, opts.Key), nil
}

func (m *MemoryService) ListObjects(_ context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if bucket == "" {
		return nil, ErrBucketRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ObjectInfo{}
	for full, obj := range m.objects {
		key, ok := strings.CutPrefix(full, bucket+"/")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		modified := obj.modified
		out = append(out, ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: &modified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryService) DeletePrefix(_ context.Context, bucket, prefix string) (int, error) {
	if bucket == "" {
		return 0, ErrBucketRequired
	}
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("prefix is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for full := range m.objects {
		if strings.HasPrefix(full, bucket+"/"+prefix) {
			delete(m.objects, full)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryService) GetObjectURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	if bucket == "" {
		return "", ErrBucketRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[bucket+"/"+key]; !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return fmt.Sprintf("mem://%s/%s", bucket, key), nil
}

// Object returns the stored bytes for key.
func (m *MemoryService) Object(bucket, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

var _ Service = (*MemoryService)(nil)
