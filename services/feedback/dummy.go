package feedbacksvc

import (
	"context"
	"sync"

	"github.com/akilisha/funzo/core"
)

// DummyService is a configurable in-memory core.FeedbackService for tests
// and DEV mode. It records every request it receives.
type DummyService struct {
	mu       sync.Mutex
	Feedback string
	Err      error
	Requests []core.FeedbackRequest
}

var _ core.FeedbackService = (*DummyService)(nil)

func NewDummyService() *DummyService {
	return &DummyService{Feedback: "Good effort! Compare your reasoning with the example solution."}
}

func (svc *DummyService) GenerateFeedback(_ context.Context, req core.FeedbackRequest) (string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.Requests = append(svc.Requests, req)
	if svc.Err != nil {
		return "", svc.Err
	}
	return svc.Feedback, nil
}

// LastRequest returns the most recent request, if any.
func (svc *DummyService) LastRequest() (core.FeedbackRequest, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if len(svc.Requests) == 0 {
		return core.FeedbackRequest{}, false
	}
	return svc.Requests[len(svc.Requests)-1], true
}
