package core

import "context"

// FeedbackRequest carries everything the external feedback generator needs to
// comment on a student's work.
type FeedbackRequest struct {
	LessonTitle      string
	Subject          string
	StudentAnswer    string
	StudentReasoning string
	CorrectSolution  string
}

// FeedbackService is any service that can generate tutoring feedback on a
// student's answer. Generation is best-effort: callers must never let a
// failure here undo work that has already been persisted.
type FeedbackService interface {
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (string, error)
}
