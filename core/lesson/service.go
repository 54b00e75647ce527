package lesson

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/user"
)

var ErrNotFound = errors.New("lesson not found")

type (
	Repository interface {
		GetLesson(ctx context.Context, id string) (Lesson, error)
		// QueryLessons applies AND operation on available QueryFilter fields.
		QueryLessons(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lesson, error)
		UpdateOrCreateLesson(ctx context.Context, l Lesson) (Lesson, error)

		CreateRating(ctx context.Context, r Rating) (Rating, error)
		QueryLessonRatings(ctx context.Context, lessonID string) ([]Rating, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByID(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Lesson, error) {
	ordering := []core.DBOrdering{
		{Field: "subject", Ascending: true},
		{Field: "branch", Ascending: true},
		{Field: "position", Ascending: true},
	}
	return svc.repo.QueryLessons(ctx, filter, ordering)
}

// Branches groups the catalog into topic branches for the given subject
// (all subjects when empty).
func (svc *Service) Branches(ctx context.Context, subject Subject) ([]Branch, error) {
	filter := &QueryFilter{Subject: subject}
	lessons, err := svc.Query(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}

	branches := make([]Branch, 0)
	idx := make(map[string]int) // subject+branch -> branches index
	for _, l := range lessons {
		key := string(l.Subject) + "/" + l.Branch
		if i, ok := idx[key]; ok {
			branches[i].Lessons++
			continue
		}
		idx[key] = len(branches)
		branches = append(branches, Branch{Name: l.Branch, Subject: l.Subject, Lessons: 1})
	}
	return branches, nil
}

// Load validates and upserts authored lesson content. Used by fixtures and
// the admin CLI only; there is no user-facing authoring flow.
func (svc *Service) Load(ctx context.Context, lessons ...Lesson) error {
	for i := range lessons {
		l := lessons[i]
		if err := l.Validate(); err != nil {
			return err
		}
		if _, err := svc.repo.UpdateOrCreateLesson(ctx, l); err != nil {
			return errors.Wrapf(err, "loading lesson %s", l.ID)
		}
	}
	return nil
}

func (svc *Service) Rate(ctx context.Context, ident user.Identity, l Lesson, nr NewRating) (Rating, error) {
	if err := nr.Validate(); err != nil {
		return Rating{}, err
	}
	r := Rating{
		LessonID:  l.ID,
		UserID:    ident.ID,
		Stars:     nr.Stars,
		Comment:   nr.Comment,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateRating(ctx, r)
}

func (svc *Service) Ratings(ctx context.Context, lessonID string) ([]Rating, error) {
	return svc.repo.QueryLessonRatings(ctx, lessonID)
}
