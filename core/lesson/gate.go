package lesson

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/akilisha/funzo/core/user"
)

// UnlockThreshold is the minimum reviewed grade (percent) required to pass a
// prerequisite and to trigger the unlock advisory after grading.
const UnlockThreshold = 75.0

type (
	// Prerequisite gates a lesson behind a minimum reviewed grade on another
	// lesson.
	Prerequisite struct {
		LessonID string
		MinGrade float64
	}

	// GateRules is the static configuration mapping a gated lesson ID to its
	// prerequisite. Lessons absent from the map are open to everyone.
	GateRules map[string]Prerequisite

	// GradeSource exposes the reviewed grades a student has earned on a
	// lesson. Implemented by the submission service.
	GradeSource interface {
		ReviewedGrades(ctx context.Context, studentID, lessonID string) ([]float64, error)
	}

	Decision struct {
		Allowed bool   `json:"allowed"`
		Reason  string `json:"reason,omitempty"`
	}

	Gate struct {
		rules  GateRules
		repo   Repository
		grades GradeSource
	}
)

func NewGate(rules GateRules, repo Repository, grades GradeSource) *Gate {
	if rules == nil {
		rules = make(GateRules)
	}
	return &Gate{rules: rules, repo: repo, grades: grades}
}

// CanAccess decides whether a principal may open the given lesson.
// Privileged principals always pass. When the grade query fails the gate
// denies and returns the error so callers surface a retriable failure instead
// of silently allowing or permanently blocking.
func (g *Gate) CanAccess(ctx context.Context, ident user.Identity, l Lesson) (Decision, error) {
	prereq, gated := g.rules[l.ID]
	if !gated {
		return Decision{Allowed: true}, nil
	}
	if ident.Privileged {
		return Decision{Allowed: true}, nil
	}

	grades, err := g.grades.ReviewedGrades(ctx, ident.ID, prereq.LessonID)
	if err != nil {
		return Decision{Allowed: false}, errors.Wrapf(err, "checking prerequisite %s", prereq.LessonID)
	}
	for _, grade := range grades {
		if grade >= prereq.MinGrade {
			return Decision{Allowed: true}, nil
		}
	}

	name := prereq.LessonID
	if g.repo != nil {
		if pl, err := g.repo.GetLesson(ctx, prereq.LessonID); err == nil {
			name = pl.Title
		}
	}
	return Decision{
		Allowed: false,
		Reason: fmt.Sprintf(
			"You need a reviewed grade of at least %.0f%% on %q to access this lesson.",
			prereq.MinGrade, name),
	}, nil
}

// Advisory is the read-only unlock check run right after a grade is recorded.
// It is purely informational: the gate always recomputes access from stored
// grades.
type Advisory struct {
	UnlockNextLesson bool   `json:"unlock_next_lesson"`
	Message          string `json:"message"`
}

// CheckUnlock evaluates whether a freshly recorded grade crosses the unlock
// threshold. Pure function of the grade.
func CheckUnlock(grade float64) Advisory {
	if grade >= UnlockThreshold {
		return Advisory{
			UnlockNextLesson: true,
			Message:          "Great work! You've unlocked the next lesson.",
		}
	}
	return Advisory{
		UnlockNextLesson: false,
		Message: fmt.Sprintf(
			"You need at least %.0f%% to unlock the next lesson. Please revise and resubmit your work.",
			UnlockThreshold),
	}
}
