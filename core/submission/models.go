package submission

import (
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/lesson"
)

// Status is a submission's lifecycle state. Valid transitions:
// draft -> submitted -> reviewed, and reviewed -> submitted again on
// resubmission. There is no terminal state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusReviewed  Status = "reviewed"
)

// minReasoningLen is the minimum reasoning length accepted on submit for
// single-question lessons.
const minReasoningLen = 10

type (
	// SingleAnswer is the answer form for lessons posing one top-level
	// question.
	SingleAnswer struct {
		Answer    string `json:"answer"`
		Reasoning string `json:"reasoning"`
	}

	// AnswerItem is one sub-answer of a structured lesson. QuestionText is a
	// snapshot taken at write time; the lesson remains the source of truth.
	AnswerItem struct {
		QuestionID   string `json:"question_id"`
		QuestionText string `json:"question_text"`
		Answer       string `json:"answer"`
		Reasoning    string `json:"reasoning"`
	}

	// StructuredAnswer is the answer form for structured lessons.
	StructuredAnswer struct {
		Items []AnswerItem `json:"items"`
	}
)

// Submission is the record of one student's work on one lesson.
//
// (StudentID, LessonID) is deliberately not unique: readers always want the
// most recent record by Timestamp. Exactly one of Single or Structured is
// populated, matching the lesson's question form.
type Submission struct {
	ID          string         `json:"id"`
	LessonID    string         `json:"lesson_id"`
	LessonTitle string         `json:"lesson_title"`
	Subject     lesson.Subject `json:"subject"`
	StudentID   string         `json:"student_id"`
	StudentName string         `json:"student_name"`
	Status      Status         `json:"status"`

	Single     *SingleAnswer     `json:"single,omitempty"`
	Structured *StructuredAnswer `json:"structured,omitempty"`

	AIFeedback    null.String  `json:"ai_feedback,omitempty"`
	TutorFeedback null.String  `json:"tutor_feedback,omitempty"`
	Grade         null.Float64 `json:"grade,omitempty"`

	Timestamp  time.Time `json:"timestamp"` // time of last student write, UTC
	ReviewedAt null.Time `json:"reviewed_at,omitempty"`
}

// FirstAnswer returns the answer/reasoning pair sent to the feedback
// generator: the single answer, or the first sub-answer of a structured
// submission (only the first one is sent; a known scope limitation carried
// over deliberately).
func (s *Submission) FirstAnswer() (answer, reasoning string) {
	if s.Single != nil {
		return s.Single.Answer, s.Single.Reasoning
	}
	if s.Structured != nil && len(s.Structured.Items) > 0 {
		return s.Structured.Items[0].Answer, s.Structured.Items[0].Reasoning
	}
	return "", ""
}

// AnswerInput is the student-provided content of a draft save or submit.
// Exactly one of Single or Items must be populated, matching the lesson.
type AnswerInput struct {
	Single *SingleAnswer `json:"single,omitempty"`
	Items  []AnswerItem  `json:"items,omitempty"`
}

// ValidateDraft only checks that the input's shape matches the lesson;
// drafts may hold partial content.
func (in *AnswerInput) ValidateDraft(l lesson.Lesson) error {
	return in.checkShape(l)
}

// ValidateSubmit enforces the submit guard: single-question lessons need a
// non-empty answer and reasoning of at least minReasoningLen characters;
// structured lessons need a non-empty answer and reasoning on every
// sub-question. Violations never reach the store.
func (in *AnswerInput) ValidateSubmit(l lesson.Lesson) error {
	if err := in.checkShape(l); err != nil {
		return err
	}

	var flds []core.FieldError
	if !l.Structured() {
		if core.CleanString(in.Single.Answer) == "" {
			flds = append(flds, core.FieldError{Field: "answer", Error: "Solution cannot be empty."})
		}
		if len(core.CleanString(in.Single.Reasoning)) < minReasoningLen {
			flds = append(flds, core.FieldError{Field: "reasoning", Error: "Reasoning must be at least 10 characters."})
		}
	} else {
		byID := make(map[string]AnswerItem, len(in.Items))
		for _, item := range in.Items {
			byID[item.QuestionID] = item
		}
		for _, sq := range l.SubQuestions {
			item, ok := byID[sq.ID]
			if !ok || core.CleanString(item.Answer) == "" {
				flds = append(flds, core.FieldError{Field: sq.ID, Error: "Answer cannot be empty."})
				continue
			}
			if core.CleanString(item.Reasoning) == "" {
				flds = append(flds, core.FieldError{Field: sq.ID, Error: "Reasoning cannot be empty."})
			}
		}
	}

	if len(flds) > 0 {
		return core.NewValidationError(errors.New("incomplete answer"), flds...)
	}
	return nil
}

func (in *AnswerInput) checkShape(l lesson.Lesson) error {
	if l.Structured() {
		if in.Single != nil || in.Items == nil {
			return core.NewValidationError(errors.New("this lesson expects structured sub-answers"))
		}
		for _, item := range in.Items {
			if !lessonHasSubQuestion(l, item.QuestionID) {
				return core.NewValidationError(errors.New("unknown sub-question " + item.QuestionID))
			}
		}
		return nil
	}
	if in.Single == nil || in.Items != nil {
		return core.NewValidationError(errors.New("this lesson expects a single answer"))
	}
	return nil
}

func lessonHasSubQuestion(l lesson.Lesson, id string) bool {
	for _, sq := range l.SubQuestions {
		if sq.ID == id {
			return true
		}
	}
	return false
}

// snapshot builds the submission's answer representation from the input,
// snapshotting structured question text from the lesson.
func (in *AnswerInput) snapshot(l lesson.Lesson) (*SingleAnswer, *StructuredAnswer) {
	if !l.Structured() {
		single := *in.Single
		return &single, nil
	}

	byID := make(map[string]AnswerItem, len(in.Items))
	for _, item := range in.Items {
		byID[item.QuestionID] = item
	}
	items := make([]AnswerItem, 0, len(l.SubQuestions))
	for _, sq := range l.SubQuestions {
		item := byID[sq.ID]
		item.QuestionID = sq.ID
		item.QuestionText = sq.Text
		items = append(items, item)
	}
	return nil, &StructuredAnswer{Items: items}
}

// ReviewInput is a reviewer's verdict on a submitted record. At least one of
// TutorFeedback or Grade is required.
type ReviewInput struct {
	TutorFeedback string   `json:"tutor_feedback"`
	Grade         *float64 `json:"grade" validate:"omitempty,min=0,max=100"`
}

func (in *ReviewInput) Validate() error {
	in.TutorFeedback = core.CleanString(in.TutorFeedback)
	if in.TutorFeedback == "" && in.Grade == nil {
		return core.NewValidationError(
			errors.New("a review needs feedback, a grade, or both"),
		)
	}
	return core.Validate.Struct(in)
}

// DashboardMetrics summarizes the reviewer dashboard's submission list.
type DashboardMetrics struct {
	TotalSubmissions int `json:"total_submissions"`
	PendingReviews   int `json:"pending_reviews"`
	ReviewedCount    int `json:"reviewed_count"`
	ActiveStudents   int `json:"active_students"`
}

func ComputeMetrics(subs []Submission) DashboardMetrics {
	m := DashboardMetrics{TotalSubmissions: len(subs)}
	students := make(map[string]bool)
	for _, s := range subs {
		switch s.Status {
		case StatusSubmitted:
			m.PendingReviews++
		case StatusReviewed:
			m.ReviewedCount++
		}
		students[s.StudentID] = true
	}
	m.ActiveStudents = len(students)
	return m
}
