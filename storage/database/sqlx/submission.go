package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/lesson"
	"github.com/akilisha/funzo/core/submission"
)

const (
	kindSingle     = "single"
	kindStructured = "structured"
)

type submissionRow struct {
	ID            string       `db:"id"`
	LessonID      string       `db:"lesson_id"`
	LessonTitle   string       `db:"lesson_title"`
	Subject       string       `db:"subject"`
	StudentID     string       `db:"student_id"`
	StudentName   string       `db:"student_name"`
	Status        string       `db:"status"`
	Kind          string       `db:"kind"`
	Answer        string       `db:"answer"`
	Reasoning     string       `db:"reasoning"`
	Items         null.Bytes   `db:"items"`
	AIFeedback    null.String  `db:"ai_feedback"`
	TutorFeedback null.String  `db:"tutor_feedback"`
	Grade         null.Float64 `db:"grade"`
	Timestamp     null.Time    `db:"ts"`
	ReviewedAt    null.Time    `db:"reviewed_at"`
}

func (r *submissionRow) from(sub submission.Submission) error {
	r.ID = sub.ID
	r.LessonID = sub.LessonID
	r.LessonTitle = sub.LessonTitle
	r.Subject = string(sub.Subject)
	r.StudentID = sub.StudentID
	r.StudentName = sub.StudentName
	r.Status = string(sub.Status)
	r.AIFeedback = sub.AIFeedback
	r.TutorFeedback = sub.TutorFeedback
	r.Grade = sub.Grade
	r.Timestamp = null.NewTime(sub.Timestamp.UTC(), !sub.Timestamp.IsZero())
	r.ReviewedAt = sub.ReviewedAt

	if sub.Structured != nil {
		r.Kind = kindStructured
		raw, err := json.Marshal(sub.Structured.Items)
		if err != nil {
			return err
		}
		r.Items = null.BytesFrom(raw)
	} else {
		r.Kind = kindSingle
		if sub.Single != nil {
			r.Answer = sub.Single.Answer
			r.Reasoning = sub.Single.Reasoning
		}
	}
	return nil
}

func (r *submissionRow) unrow() (submission.Submission, error) {
	sub := submission.Submission{
		ID:            r.ID,
		LessonID:      r.LessonID,
		LessonTitle:   r.LessonTitle,
		Subject:       lesson.Subject(r.Subject),
		StudentID:     r.StudentID,
		StudentName:   r.StudentName,
		Status:        submission.Status(r.Status),
		AIFeedback:    r.AIFeedback,
		TutorFeedback: r.TutorFeedback,
		Grade:         r.Grade,
		Timestamp:     r.Timestamp.Time,
		ReviewedAt:    r.ReviewedAt,
	}
	if r.Kind == kindStructured {
		var items []submission.AnswerItem
		if r.Items.Valid && len(r.Items.Bytes) > 0 {
			if err := json.Unmarshal(r.Items.Bytes, &items); err != nil {
				return submission.Submission{}, err
			}
		}
		sub.Structured = &submission.StructuredAnswer{Items: items}
	} else {
		sub.Single = &submission.SingleAnswer{Answer: r.Answer, Reasoning: r.Reasoning}
	}
	return sub, nil
}

type submissionRepository struct {
	db core.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db core.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	var row submissionRow
	if err := row.from(sub); err != nil {
		return submission.Submission{}, core.NewStoreUnavailableError("encoding submission", err)
	}
	query := `
		INSERT INTO submission (id, lesson_id, lesson_title, subject, student_id, student_name, status, kind,
			answer, reasoning, items, ai_feedback, tutor_feedback, grade, ts, reviewed_at)
		VALUES (:id, :lesson_id, :lesson_title, :subject, :student_id, :student_name, :status, :kind,
			:answer, :reasoning, :items, :ai_feedback, :tutor_feedback, :grade, :ts, :reviewed_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, &row); err != nil {
		return submission.Submission{}, core.NewStoreUnavailableError("inserting submission", err)
	}
	return sub, nil
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	var row submissionRow
	if err := row.from(sub); err != nil {
		return submission.Submission{}, core.NewStoreUnavailableError("encoding submission", err)
	}
	query := `
		UPDATE submission SET
			lesson_id = :lesson_id,
			lesson_title = :lesson_title,
			subject = :subject,
			student_id = :student_id,
			student_name = :student_name,
			status = :status,
			kind = :kind,
			answer = :answer,
			reasoning = :reasoning,
			items = :items,
			ai_feedback = :ai_feedback,
			tutor_feedback = :tutor_feedback,
			grade = :grade,
			ts = :ts,
			reviewed_at = :reviewed_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, &row)
	if err != nil {
		return submission.Submission{}, core.NewStoreUnavailableError("updating submission", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return submission.Submission{}, submission.ErrNotFound
	}
	return sub, nil
}

func (repo *submissionRepository) SetAIFeedback(ctx context.Context, id string, feedback null.String) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE submission SET ai_feedback = $1 WHERE id = $2`, feedback, id)
	if err != nil {
		return core.NewStoreUnavailableError("setting AI feedback", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return submission.ErrNotFound
	}
	return nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string) (submission.Submission, error) {
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM submission WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, core.NewStoreUnavailableError("finding submission", err)
	}
	sub, err := row.unrow()
	if err != nil {
		return submission.Submission{}, core.NewStoreUnavailableError("decoding submission", err)
	}
	return sub, nil
}

func (repo *submissionRepository) FindLatestSubmission(ctx context.Context, studentID, lessonID string) (submission.Submission, error) {
	var row submissionRow
	query := `SELECT * FROM submission WHERE student_id = $1 AND lesson_id = $2 ORDER BY ts DESC LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, query, studentID, lessonID); err != nil {
		if err == sql.ErrNoRows {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, core.NewStoreUnavailableError("finding latest submission", err)
	}
	sub, err := row.unrow()
	if err != nil {
		return submission.Submission{}, core.NewStoreUnavailableError("decoding submission", err)
	}
	return sub, nil
}

func (repo *submissionRepository) QueryStudentLessonSubmissions(ctx context.Context, studentID, lessonID string) ([]submission.Submission, error) {
	query := `SELECT * FROM submission WHERE student_id = $1 AND lesson_id = $2 ORDER BY ts DESC`
	return repo.query(ctx, query, studentID, lessonID)
}

func (repo *submissionRepository) QueryLessonSubmissions(ctx context.Context, lessonID string) ([]submission.Submission, error) {
	query := `SELECT * FROM submission WHERE lesson_id = $1 ORDER BY ts DESC`
	return repo.query(ctx, query, lessonID)
}

func (repo *submissionRepository) QueryAllSubmissions(ctx context.Context) ([]submission.Submission, error) {
	return repo.query(ctx, `SELECT * FROM submission ORDER BY ts DESC`)
}

func (repo *submissionRepository) query(ctx context.Context, query string, args ...interface{}) ([]submission.Submission, error) {
	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, core.NewStoreUnavailableError("querying submissions", err)
	}
	subs := make([]submission.Submission, 0, len(rows))
	for i := range rows {
		sub, err := rows[i].unrow()
		if err != nil {
			return nil, core.NewStoreUnavailableError("decoding submission", err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
