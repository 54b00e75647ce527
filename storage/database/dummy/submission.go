package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/akilisha/funzo/core/submission"
)

type submissionRepository struct {
	db *submissionTable
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db.submission}
}

func (repo *submissionRepository) query(match func(*submission.Submission) bool) []submission.Submission {
	subs := make([]submission.Submission, 0)
	for _, sub := range repo.db.table {
		if match(sub) {
			subs = append(subs, *sub)
		}
	}
	// most recent first
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Timestamp.After(subs[j].Timestamp) })
	return subs
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[sub.ID]; !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *submissionRepository) SetAIFeedback(ctx context.Context, id string, feedback null.String) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return submission.ErrNotFound
	}
	sub.AIFeedback = feedback
	return nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string) (submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		return *sub, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) FindLatestSubmission(ctx context.Context, studentID, lessonID string) (submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := repo.query(func(sub *submission.Submission) bool {
		return sub.StudentID == studentID && sub.LessonID == lessonID
	})
	if len(subs) == 0 {
		return submission.Submission{}, submission.ErrNotFound
	}
	return subs[0], nil
}

func (repo *submissionRepository) QueryStudentLessonSubmissions(ctx context.Context, studentID, lessonID string) ([]submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.query(func(sub *submission.Submission) bool {
		return sub.StudentID == studentID && sub.LessonID == lessonID
	}), nil
}

func (repo *submissionRepository) QueryLessonSubmissions(ctx context.Context, lessonID string) ([]submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.query(func(sub *submission.Submission) bool { return sub.LessonID == lessonID }), nil
}

func (repo *submissionRepository) QueryAllSubmissions(ctx context.Context) ([]submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.query(func(*submission.Submission) bool { return true }), nil
}
