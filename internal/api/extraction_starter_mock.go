package api

import (
	"github.com/stretchr/testify/mock"

	"github.com/vrsandeep/filebox/internal/jobs"
)

// MockExtractionStarter is a mock implementation of ExtractionStarter
type MockExtractionStarter struct {
	mock.Mock
}

// StartExtraction mocks the StartExtraction method
func (m *MockExtractionStarter) StartExtraction(archivePath, destDir, subscriberID string) (*jobs.ExtractionJob, error) {
	args := m.Called(archivePath, destDir, subscriberID)
	job, _ := args.Get(0).(*jobs.ExtractionJob)
	return job, args.Error(1)
}
