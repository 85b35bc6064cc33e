package services

import (
	"fmt"
	"sync"
)

// MockS3Service is a mock implementation of S3Service for testing
type MockS3Service struct {
	objects map[string][]byte // map of S3 key to object content
	mu      sync.RWMutex
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		objects: make(map[string][]byte),
	}
}

// SetAsMockForTesting sets this mock as the global S3 service instance for testing
func (m *MockS3Service) SetAsMockForTesting() {
	SetS3Service(m)
}

// PutObject simulates uploading bytes to S3
func (m *MockS3Service) PutObject(key string, data []byte, contentType string) error {
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return nil
}

// GetPresignedURL simulates generating a presigned URL
func (m *MockS3Service) GetPresignedURL(key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("object not found in mock S3: %s", key)
	}

	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// DeleteObject simulates deleting an object from S3
func (m *MockS3Service) DeleteObject(key string) error {
	if key == "" {
		return nil
	}

	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// ObjectExists checks if an object exists in mock storage
func (m *MockS3Service) ObjectExists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[key]
	return exists
}

// StoredObjects returns a copy of all stored objects (for testing assertions)
func (m *MockS3Service) StoredObjects() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects := make(map[string][]byte, len(m.objects))
	for k, v := range m.objects {
		objects[k] = v
	}
	return objects
}

// Clear removes all objects from mock storage
func (m *MockS3Service) Clear() {
	m.mu.Lock()
	m.objects = make(map[string][]byte)
	m.mu.Unlock()
}
