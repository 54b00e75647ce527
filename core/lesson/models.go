package lesson

import (
	"time"

	"github.com/pkg/errors"

	"github.com/akilisha/funzo/core"
)

type Subject string

const (
	SubjectMathematics Subject = "Mathematics"
	SubjectPhysics     Subject = "Physics"
)

var AllSubjects = []Subject{SubjectMathematics, SubjectPhysics}

func (s Subject) Valid() bool {
	for _, sub := range AllSubjects {
		if s == sub {
			return true
		}
	}
	return false
}

// Branch is a free-text topic grouping within a subject
// (eg. "Algebra", "Mechanics").
type Branch struct {
	Name    string  `json:"name"`
	Subject Subject `json:"subject"`
	Lessons int     `json:"lessons"`
}

// SubQuestion is one entry of a structured lesson's question list.
type SubQuestion struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Marks int    `json:"marks,omitempty"`
}

// Lesson is static instructional content, authored out-of-band (fixtures,
// admin CLI); no user-facing flow creates or mutates lessons.
//
// A lesson either poses a single top-level Question with an ExampleSolution,
// or an ordered list of SubQuestions. Exactly one of the two forms is
// populated.
type Lesson struct {
	ID              string        `json:"id"`
	Subject         Subject       `json:"subject"`
	Branch          string        `json:"branch"`
	Title           string        `json:"title"`
	YoutubeVideoID  string        `json:"youtube_video_id,omitempty"`
	Content         string        `json:"content"`
	Question        string        `json:"question,omitempty"`
	SubQuestions    []SubQuestion `json:"sub_questions,omitempty"`
	ExampleSolution string        `json:"example_solution"`
	Position        int           `json:"position"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Structured reports whether this lesson poses its question as an ordered
// list of sub-questions.
func (l *Lesson) Structured() bool { return len(l.SubQuestions) > 0 }

// Validate enforces the lesson content invariant: a lesson without
// sub-questions must have a top-level question and example solution; a
// structured lesson must have non-empty sub-question IDs, unique within the
// lesson.
func (l *Lesson) Validate() error {
	var flds []core.FieldError

	if l.ID == "" {
		flds = append(flds, core.FieldError{Field: "id", Error: "this field is required"})
	}
	if l.Title == "" {
		flds = append(flds, core.FieldError{Field: "title", Error: "this field is required"})
	}
	if !l.Subject.Valid() {
		flds = append(flds, core.FieldError{Field: "subject", Error: "unknown subject"})
	}

	if l.Structured() {
		if l.Question != "" {
			flds = append(flds, core.FieldError{
				Field: "question",
				Error: "a lesson poses either a single question or sub-questions, not both",
			})
		}
		seen := make(map[string]bool, len(l.SubQuestions))
		for _, sq := range l.SubQuestions {
			if sq.ID == "" {
				flds = append(flds, core.FieldError{
					Field: "sub_questions",
					Error: "sub-question identifiers cannot be empty",
				})
				break
			}
			if seen[sq.ID] {
				flds = append(flds, core.FieldError{
					Field: "sub_questions",
					Error: "duplicate sub-question identifier " + sq.ID,
				})
			}
			seen[sq.ID] = true
			if sq.Text == "" {
				flds = append(flds, core.FieldError{
					Field: "sub_questions",
					Error: "sub-question " + sq.ID + " has no text",
				})
			}
		}
	} else {
		if l.Question == "" {
			flds = append(flds, core.FieldError{Field: "question", Error: "a lesson without sub-questions must pose a question"})
		}
		if l.ExampleSolution == "" {
			flds = append(flds, core.FieldError{Field: "example_solution", Error: "a lesson without sub-questions must carry an example solution"})
		}
	}

	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid lesson"), flds...)
	}
	return nil
}

type QueryFilter struct {
	Subject Subject `query:"subject"`
	Branch  string  `query:"branch"`
	Search  string  `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Subject == "" && qf.Branch == "" && qf.Search == ""
}

func (qf *QueryFilter) Clean() {
	qf.Branch = core.CleanString(qf.Branch)
	qf.Search = core.CleanString(qf.Search)
}

// Rating is a student's star rating of a lesson.
type Rating struct {
	ID        string    `json:"id"`
	LessonID  string    `json:"lesson_id"`
	UserID    string    `json:"user_id"`
	Stars     int       `json:"stars"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type NewRating struct {
	Stars   int    `json:"stars" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func (nr *NewRating) Validate() error {
	nr.Comment = core.CleanString(nr.Comment)
	return core.Validate.Struct(nr)
}
