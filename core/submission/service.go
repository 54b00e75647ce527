package submission

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/lesson"
	"github.com/akilisha/funzo/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("submission not found")
	// ErrInvalidTransition is returned when an event is not legal from the
	// record's current status (eg. reviewing a draft).
	ErrInvalidTransition = errors.New("invalid submission transition")
)

type (
	Repository interface {
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		// UpdateSubmission replaces the stored record. Last write wins; there
		// is no optimistic-concurrency token.
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)
		// SetAIFeedback partially updates a record's AI feedback field only.
		SetAIFeedback(ctx context.Context, id string, feedback null.String) error
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// FindLatestSubmission returns the most recent record by Timestamp
		// for the (student, lesson) pair, or ErrNotFound.
		FindLatestSubmission(ctx context.Context, studentID, lessonID string) (Submission, error)
		// QueryStudentLessonSubmissions returns all of a student's records
		// for a lesson, most recent first.
		QueryStudentLessonSubmissions(ctx context.Context, studentID, lessonID string) ([]Submission, error)
		QueryLessonSubmissions(ctx context.Context, lessonID string) ([]Submission, error)
		// QueryAllSubmissions returns every record, most recent first, for
		// the reviewer dashboard.
		QueryAllSubmissions(ctx context.Context) ([]Submission, error)
	}

	// StudentDirectory looks up student profiles for notifications.
	// Implemented by user.Service.
	StudentDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo        Repository
		feedbackSvc core.FeedbackService
		mailSvc     core.EmailService
		students    StudentDirectory
		logger      core.Logger
		hub         *Hub

		// asyncFeedback is disabled in tests so feedback generation runs
		// inline.
		asyncFeedback bool
	}
)

var _ lesson.GradeSource = (*Service)(nil)

func NewService(
	repo Repository,
	feedbackSvc core.FeedbackService,
	mailSvc core.EmailService,
	students StudentDirectory,
	logger core.Logger,
) *Service {
	return &Service{
		repo:          repo,
		feedbackSvc:   feedbackSvc,
		mailSvc:       mailSvc,
		students:      students,
		logger:        logger,
		hub:           NewHub(),
		asyncFeedback: !core.Conf.TestMode,
	}
}

func (svc *Service) Hub() *Hub { return svc.hub }

// SaveDraft records work in progress. A draft save never touches
// reviewer-authored fields (tutor feedback, grade, reviewed-at) nor prior AI
// feedback, even when it overwrites a previously reviewed record.
func (svc *Service) SaveDraft(ctx context.Context, ident user.Identity, l lesson.Lesson, in AnswerInput) (Submission, error) {
	if err := in.ValidateDraft(l); err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.FindLatestSubmission(ctx, ident.ID, l.ID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return Submission{}, errors.Wrap(err, "finding latest submission")
	}
	fresh := err != nil

	single, structured := in.snapshot(l)
	sub.Single, sub.Structured = single, structured
	sub.Status = StatusDraft
	sub.Timestamp = time.Now().UTC()

	if fresh {
		sub.LessonID = l.ID
		sub.LessonTitle = l.Title
		sub.Subject = l.Subject
		sub.StudentID = ident.ID
		sub.StudentName = svc.studentName(ctx, ident.ID)
		if sub, err = svc.repo.CreateSubmission(ctx, sub); err != nil {
			return Submission{}, errors.Wrap(err, "creating draft")
		}
	} else if sub, err = svc.repo.UpdateSubmission(ctx, sub); err != nil {
		return Submission{}, errors.Wrap(err, "saving draft")
	}

	svc.hub.broadcast(sub)
	return sub, nil
}

// Submit validates and persists the student's answer as submitted, then
// kicks off AI feedback generation. Submitting over a reviewed record is the
// resubmission path: it clears the prior review (AI feedback, tutor feedback,
// grade, reviewed-at) so the student can iterate.
//
// The transition is only reported once durably persisted; feedback generation
// is best-effort and cannot fail the submit.
func (svc *Service) Submit(ctx context.Context, ident user.Identity, l lesson.Lesson, in AnswerInput) (Submission, error) {
	if err := in.ValidateSubmit(l); err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.FindLatestSubmission(ctx, ident.ID, l.ID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return Submission{}, errors.Wrap(err, "finding latest submission")
	}
	fresh := err != nil

	single, structured := in.snapshot(l)
	sub.Single, sub.Structured = single, structured
	sub.Status = StatusSubmitted
	sub.AIFeedback = null.String{}
	sub.TutorFeedback = null.String{}
	sub.Grade = null.Float64{}
	sub.ReviewedAt = null.Time{}
	sub.Timestamp = time.Now().UTC()

	if fresh {
		sub.LessonID = l.ID
		sub.LessonTitle = l.Title
		sub.Subject = l.Subject
		sub.StudentID = ident.ID
		sub.StudentName = svc.studentName(ctx, ident.ID)
		if sub, err = svc.repo.CreateSubmission(ctx, sub); err != nil {
			return Submission{}, errors.Wrap(err, "creating submission")
		}
	} else if sub, err = svc.repo.UpdateSubmission(ctx, sub); err != nil {
		return Submission{}, errors.Wrap(err, "updating submission")
	}

	svc.hub.broadcast(sub)

	if svc.asyncFeedback {
		go svc.generateFeedback(context.Background(), l, sub)
	} else {
		svc.generateFeedback(ctx, l, sub)
	}
	return sub, nil
}

// Review records a reviewer's verdict on a submitted record and reports the
// unlock advisory for the grade, if one was given. Only privileged principals
// may review, and only records in the submitted state.
func (svc *Service) Review(ctx context.Context, ident user.Identity, id string, in ReviewInput) (Submission, *lesson.Advisory, error) {
	if !ident.Privileged {
		return Submission{}, nil, core.ErrPermissionDenied
	}
	if err := in.Validate(); err != nil {
		return Submission{}, nil, err
	}

	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, nil, errors.Wrap(err, "finding submission")
	}
	if sub.Status != StatusSubmitted {
		return Submission{}, nil, errors.Wrapf(ErrInvalidTransition, "cannot review a %s submission", sub.Status)
	}

	sub.Status = StatusReviewed
	if in.TutorFeedback != "" {
		sub.TutorFeedback = null.StringFrom(in.TutorFeedback)
	}
	if in.Grade != nil {
		sub.Grade = null.Float64From(*in.Grade)
	}
	sub.ReviewedAt = null.TimeFrom(time.Now().UTC())

	if sub, err = svc.repo.UpdateSubmission(ctx, sub); err != nil {
		return Submission{}, nil, errors.Wrap(err, "saving review")
	}

	// read-only advisory; the gate always recomputes from stored grades
	var adv *lesson.Advisory
	if in.Grade != nil {
		a := lesson.CheckUnlock(*in.Grade)
		adv = &a
	}

	svc.hub.broadcast(sub)
	svc.notifyReviewed(sub, adv)
	return sub, adv, nil
}

// Get returns a single submission: its owner's, or any for a privileged
// principal.
func (svc *Service) Get(ctx context.Context, ident user.Identity, id string) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, errors.Wrap(err, "finding submission")
	}
	if sub.StudentID != ident.ID && !ident.Privileged {
		return Submission{}, core.ErrPermissionDenied
	}
	return sub, nil
}

// Latest returns the principal's most recent submission for a lesson.
func (svc *Service) Latest(ctx context.Context, ident user.Identity, lessonID string) (Submission, error) {
	return svc.repo.FindLatestSubmission(ctx, ident.ID, lessonID)
}

// History returns the principal's own records on a lesson, most recent first.
func (svc *Service) History(ctx context.Context, ident user.Identity, lessonID string) ([]Submission, error) {
	return svc.repo.QueryStudentLessonSubmissions(ctx, ident.ID, lessonID)
}

// ForLesson returns all submissions on a lesson, most recent first.
func (svc *Service) ForLesson(ctx context.Context, lessonID string) ([]Submission, error) {
	return svc.repo.QueryLessonSubmissions(ctx, lessonID)
}

// ForReview returns every submission, most recent first, for the reviewer
// dashboard.
func (svc *Service) ForReview(ctx context.Context, ident user.Identity) ([]Submission, error) {
	if !ident.Privileged {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryAllSubmissions(ctx)
}

// ReviewedGrades implements lesson.GradeSource: the numeric grades of the
// student's reviewed submissions on a lesson.
func (svc *Service) ReviewedGrades(ctx context.Context, studentID, lessonID string) ([]float64, error) {
	subs, err := svc.repo.QueryStudentLessonSubmissions(ctx, studentID, lessonID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	grades := make([]float64, 0, len(subs))
	for _, s := range subs {
		if s.Status == StatusReviewed && s.Grade.Valid {
			grades = append(grades, s.Grade.Float64)
		}
	}
	return grades, nil
}

// RequestFeedback re-runs AI feedback generation for the principal's own
// submission, eg. after a failed best-effort attempt.
func (svc *Service) RequestFeedback(ctx context.Context, ident user.Identity, l lesson.Lesson, id string) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, errors.Wrap(err, "finding submission")
	}
	if sub.StudentID != ident.ID {
		return Submission{}, core.ErrPermissionDenied
	}
	if sub.Status == StatusDraft {
		return Submission{}, errors.Wrap(ErrInvalidTransition, "cannot generate feedback for a draft")
	}

	if err = svc.generateFeedback(ctx, l, sub); err != nil {
		return Submission{}, err
	}
	return svc.repo.GetSubmission(ctx, id)
}

// generateFeedback asks the external feedback service to comment on the
// submission and persists the result. Failures are reported (and logged) but
// never undo the already-committed transition; AIFeedback stays null.
func (svc *Service) generateFeedback(ctx context.Context, l lesson.Lesson, sub Submission) error {
	ctx, cancel := context.WithTimeout(ctx, core.Conf.Feedback.Timeout)
	defer cancel()

	answer, reasoning := sub.FirstAnswer()
	text, err := svc.feedbackSvc.GenerateFeedback(ctx, core.FeedbackRequest{
		LessonTitle:      l.Title,
		Subject:          string(l.Subject),
		StudentAnswer:    answer,
		StudentReasoning: reasoning,
		CorrectSolution:  l.ExampleSolution,
	})
	if err != nil {
		svc.logger.Warn("AI feedback generation failed", errors.Wrap(err, "generating feedback"))
		return errors.Wrap(err, "generating feedback")
	}

	if err = svc.repo.SetAIFeedback(ctx, sub.ID, null.StringFrom(text)); err != nil {
		svc.logger.Error("persisting AI feedback failed", err)
		return errors.Wrap(err, "saving feedback")
	}

	sub.AIFeedback = null.StringFrom(text)
	svc.hub.broadcast(sub)
	return nil
}

// studentName snapshots the student's display name onto new records so
// reviewer listings do not need a join. Best-effort.
func (svc *Service) studentName(ctx context.Context, studentID string) string {
	usr, err := svc.students.GetByID(ctx, studentID)
	if err != nil {
		return ""
	}
	return usr.Name
}

func (svc *Service) notifyReviewed(sub Submission, adv *lesson.Advisory) {
	usr, err := svc.students.GetByID(context.Background(), sub.StudentID)
	if err != nil || usr.Email == "" {
		return
	}

	data := struct {
		Name        string
		LessonTitle string
		Feedback    string
		HasGrade    bool
		Grade       float64
		Advisory    string
	}{
		Name:        usr.Name,
		LessonTitle: sub.LessonTitle,
		Feedback:    sub.TutorFeedback.String,
		HasGrade:    sub.Grade.Valid,
		Grade:       sub.Grade.Float64,
	}
	if adv != nil {
		data.Advisory = adv.Message
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your work on " + sub.LessonTitle + " has been reviewed",
		TemplateName: "submission_reviewed",
		TemplateData: data,
	})
}
