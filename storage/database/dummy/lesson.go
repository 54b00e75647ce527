package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/lesson"
)

type lessonRepository struct {
	db *lessonTable
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) *lessonRepository {
	return &lessonRepository{db: db.lesson}
}

func (repo *lessonRepository) query() []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0, len(repo.db.table))
	for _, l := range repo.db.table {
		lessons = append(lessons, *l)
	}
	return lessons
}

func (repo *lessonRepository) GetLesson(ctx context.Context, id string) (lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.table[id]; ok {
		return *l, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) QueryLessons(ctx context.Context, filter *lesson.QueryFilter, ordering []core.DBOrdering) ([]lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := repo.query()

	if filter != nil {
		if filter.Subject != "" {
			var filtered []lesson.Lesson
			for _, l := range lessons {
				if l.Subject == filter.Subject {
					filtered = append(filtered, l)
				}
			}
			lessons = filtered
		}
		if lessons != nil && filter.Branch != "" {
			var filtered []lesson.Lesson
			for _, l := range lessons {
				if l.Branch == filter.Branch {
					filtered = append(filtered, l)
				}
			}
			lessons = filtered
		}
		if lessons != nil && filter.Search != "" {
			var filtered []lesson.Lesson
			kw := strings.ToLower(filter.Search)
			for _, l := range lessons {
				if strings.Contains(strings.ToLower(l.Title), kw) ||
					strings.Contains(strings.ToLower(l.Content), kw) {
					filtered = append(filtered, l)
				}
			}
			lessons = filtered
		}
	}

	// ordering is by subject, branch then position throughout
	sort.SliceStable(lessons, func(i, j int) bool {
		if lessons[i].Subject != lessons[j].Subject {
			return lessons[i].Subject < lessons[j].Subject
		}
		if lessons[i].Branch != lessons[j].Branch {
			return lessons[i].Branch < lessons[j].Branch
		}
		return lessons[i].Position < lessons[j].Position
	})
	return lessons, nil
}

func (repo *lessonRepository) UpdateOrCreateLesson(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.table[l.ID]; ok && l.CreatedAt.IsZero() {
		l.CreatedAt = orig.CreatedAt
	}
	repo.db.table[l.ID] = &l
	return l, nil
}

func (repo *lessonRepository) CreateRating(ctx context.Context, r lesson.Rating) (lesson.Rating, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	repo.db.ratings[r.ID] = &r
	return r, nil
}

func (repo *lessonRepository) QueryLessonRatings(ctx context.Context, lessonID string) ([]lesson.Rating, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ratings := make([]lesson.Rating, 0)
	for _, r := range repo.db.ratings {
		if r.LessonID == lessonID {
			ratings = append(ratings, *r)
		}
	}
	sort.SliceStable(ratings, func(i, j int) bool { return ratings[i].CreatedAt.After(ratings[j].CreatedAt) })
	return ratings, nil
}
