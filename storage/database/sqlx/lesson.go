package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/lesson"
)

type lessonRow struct {
	ID              string     `db:"id"`
	Subject         string     `db:"subject"`
	Branch          string     `db:"branch"`
	Title           string     `db:"title"`
	YoutubeVideoID  string     `db:"youtube_video_id"`
	Content         string     `db:"content"`
	Question        string     `db:"question"`
	SubQuestions    null.Bytes `db:"sub_questions"`
	ExampleSolution string     `db:"example_solution"`
	Position        int        `db:"position"`
	CreatedAt       null.Time  `db:"created_at"`
}

func (r *lessonRow) from(l lesson.Lesson) error {
	r.ID = l.ID
	r.Subject = string(l.Subject)
	r.Branch = l.Branch
	r.Title = l.Title
	r.YoutubeVideoID = l.YoutubeVideoID
	r.Content = l.Content
	r.Question = l.Question
	r.ExampleSolution = l.ExampleSolution
	r.Position = l.Position
	r.CreatedAt = null.NewTime(l.CreatedAt.UTC(), !l.CreatedAt.IsZero())
	if l.SubQuestions != nil {
		raw, err := json.Marshal(l.SubQuestions)
		if err != nil {
			return err
		}
		r.SubQuestions = null.BytesFrom(raw)
	}
	return nil
}

func (r *lessonRow) unrow() (lesson.Lesson, error) {
	l := lesson.Lesson{
		ID:              r.ID,
		Subject:         lesson.Subject(r.Subject),
		Branch:          r.Branch,
		Title:           r.Title,
		YoutubeVideoID:  r.YoutubeVideoID,
		Content:         r.Content,
		Question:        r.Question,
		ExampleSolution: r.ExampleSolution,
		Position:        r.Position,
		CreatedAt:       r.CreatedAt.Time,
	}
	if r.SubQuestions.Valid && len(r.SubQuestions.Bytes) > 0 {
		if err := json.Unmarshal(r.SubQuestions.Bytes, &l.SubQuestions); err != nil {
			return lesson.Lesson{}, err
		}
	}
	return l, nil
}

type ratingRow struct {
	ID        string    `db:"id"`
	LessonID  string    `db:"lesson_id"`
	UserID    string    `db:"user_id"`
	Stars     int       `db:"stars"`
	Comment   string    `db:"comment"`
	CreatedAt null.Time `db:"created_at"`
}

type lessonRepository struct {
	db core.DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db core.DB) *lessonRepository {
	return &lessonRepository{db: db}
}

func (repo *lessonRepository) GetLesson(ctx context.Context, id string) (lesson.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM lesson WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return lesson.Lesson{}, lesson.ErrNotFound
		}
		return lesson.Lesson{}, core.NewStoreUnavailableError("finding lesson", err)
	}
	l, err := row.unrow()
	if err != nil {
		return lesson.Lesson{}, core.NewStoreUnavailableError("decoding lesson", err)
	}
	return l, nil
}

func (repo *lessonRepository) QueryLessons(ctx context.Context, filter *lesson.QueryFilter, ordering []core.DBOrdering) ([]lesson.Lesson, error) {
	query := `SELECT * FROM lesson`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Subject != "" {
			conds = append(conds, "subject = "+arg(string(filter.Subject)))
		}
		if filter.Branch != "" {
			conds = append(conds, "branch = "+arg(filter.Branch))
		}
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(title ILIKE %[1]s OR content ILIKE %[1]s)", p))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, core.NewStoreUnavailableError("querying lessons", err)
	}
	lessons := make([]lesson.Lesson, 0, len(rows))
	for i := range rows {
		l, err := rows[i].unrow()
		if err != nil {
			return nil, core.NewStoreUnavailableError("decoding lesson", err)
		}
		lessons = append(lessons, l)
	}
	return lessons, nil
}

func (repo *lessonRepository) UpdateOrCreateLesson(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	var row lessonRow
	if err := row.from(l); err != nil {
		return lesson.Lesson{}, core.NewStoreUnavailableError("encoding lesson", err)
	}
	query := `
		INSERT INTO lesson (id, subject, branch, title, youtube_video_id, content, question, sub_questions, example_solution, position, created_at)
		VALUES (:id, :subject, :branch, :title, :youtube_video_id, :content, :question, :sub_questions, :example_solution, :position, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			subject = EXCLUDED.subject,
			branch = EXCLUDED.branch,
			title = EXCLUDED.title,
			youtube_video_id = EXCLUDED.youtube_video_id,
			content = EXCLUDED.content,
			question = EXCLUDED.question,
			sub_questions = EXCLUDED.sub_questions,
			example_solution = EXCLUDED.example_solution,
			position = EXCLUDED.position`
	if _, err := repo.db.NamedExecContext(ctx, query, &row); err != nil {
		return lesson.Lesson{}, core.NewStoreUnavailableError("upserting lesson", err)
	}
	return l, nil
}

func (repo *lessonRepository) CreateRating(ctx context.Context, r lesson.Rating) (lesson.Rating, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	row := ratingRow{
		ID:        r.ID,
		LessonID:  r.LessonID,
		UserID:    r.UserID,
		Stars:     r.Stars,
		Comment:   r.Comment,
		CreatedAt: null.NewTime(r.CreatedAt.UTC(), !r.CreatedAt.IsZero()),
	}
	query := `
		INSERT INTO rating (id, lesson_id, user_id, stars, comment, created_at)
		VALUES (:id, :lesson_id, :user_id, :stars, :comment, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, &row); err != nil {
		return lesson.Rating{}, core.NewStoreUnavailableError("inserting rating", err)
	}
	return r, nil
}

func (repo *lessonRepository) QueryLessonRatings(ctx context.Context, lessonID string) ([]lesson.Rating, error) {
	var rows []ratingRow
	query := `SELECT * FROM rating WHERE lesson_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, lessonID); err != nil {
		return nil, core.NewStoreUnavailableError("querying ratings", err)
	}
	ratings := make([]lesson.Rating, 0, len(rows))
	for _, row := range rows {
		ratings = append(ratings, lesson.Rating{
			ID:        row.ID,
			LessonID:  row.LessonID,
			UserID:    row.UserID,
			Stars:     row.Stars,
			Comment:   row.Comment,
			CreatedAt: row.CreatedAt.Time,
		})
	}
	return ratings, nil
}
