package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/akilisha/funzo/core/lesson"
	"github.com/akilisha/funzo/core/submission"
	"github.com/akilisha/funzo/core/user"
)

func Test_lessonApi_query(t *testing.T) {
	ts := setupServer(t)
	student := ts.createUser(t, "Awa Student", "awa123", user.RoleStudent)
	token := getToken(t, student)

	tests := []httpTest{
		{
			name:     "requires auth",
			method:   http.MethodGet,
			path:     "/v1/lessons",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "lists the catalog",
			method:   http.MethodGet,
			path:     "/v1/lessons",
			token:    token,
			wantCode: http.StatusOK,
			extra:    3,
		},
		{
			name:     "filters by subject",
			method:   http.MethodGet,
			path:     "/v1/lessons?subject=Physics",
			token:    token,
			wantCode: http.StatusOK,
			extra:    1,
		},
		{
			name:     "searches title and content",
			method:   http.MethodGet,
			path:     "/v1/lessons?search=quadratic",
			token:    token,
			wantCode: http.StatusOK,
			extra:    1,
		},
		{
			name:     "unknown search matches nothing",
			method:   http.MethodGet,
			path:     "/v1/lessons?search=calculus",
			token:    token,
			wantCode: http.StatusOK,
			extra:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			ts.srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if want, ok := tt.extra.(int); ok && rec.Code == http.StatusOK {
				var lessons []lesson.Lesson
				if err := json.Unmarshal(rec.Body.Bytes(), &lessons); err != nil {
					t.Fatalf("unmarshalling lessons; %v", err)
				}
				if len(lessons) != want {
					t.Errorf("got %d lessons, want %d", len(lessons), want)
				}
			}
		})
	}

	t.Run("branches group the catalog", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/branches", token)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("branches = %d; body %s", rec.Code, rec.Body.String())
		}
		wantData := marshallObj(t, []lesson.Branch{
			{Name: "Algebra", Subject: lesson.SubjectMathematics, Lessons: 2},
			{Name: "Mechanics", Subject: lesson.SubjectPhysics, Lessons: 1},
		})
		if ok, err := jsonBytesEqual(t, rec.Body.Bytes(), wantData); err != nil || !ok {
			t.Errorf("branches = %s; want %s (err %v)", rec.Body.Bytes(), wantData, err)
		}
	})
}

func Test_lessonApi_gating(t *testing.T) {
	ts := setupServer(t)
	student := ts.createUser(t, "Awa Student", "awa123", user.RoleStudent)
	tutor := ts.createUser(t, "Tutu Tutor", "tutu12", user.RoleTutor)
	studentToken := getToken(t, student)
	tutorToken := getToken(t, tutor)

	t.Run("open lesson is accessible", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/algebra-linear-equations", studentToken)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("gated lesson is denied without the prerequisite grade", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/algebra-quadratic-equations", studentToken)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}
		var resp httpErr
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling error; %v", err)
		}
		if !strings.Contains(resp.Error, "Linear Equations") || !strings.Contains(resp.Error, "75%") {
			t.Errorf("denial reason = %q, want the prerequisite title and threshold", resp.Error)
		}
	})

	t.Run("tutors bypass the gate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/algebra-quadratic-equations", tutorToken)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("a passing reviewed grade unlocks the lesson", func(t *testing.T) {
		ctx := context.Background()
		studentIdent := user.Identity{ID: student.ID, Role: user.RoleStudent}
		tutorIdent := user.Identity{ID: tutor.ID, Role: user.RoleTutor, Privileged: true}

		l, err := ts.lsnSvc.GetByID(ctx, "algebra-linear-equations")
		if err != nil {
			t.Fatalf("finding lesson; %v", err)
		}
		sub, err := ts.subSvc.Submit(ctx, studentIdent, l, submission.AnswerInput{
			Single: &submission.SingleAnswer{
				Answer:    "x = 5",
				Reasoning: "Subtract 7 from both sides, then divide by 3.",
			},
		})
		if err != nil {
			t.Fatalf("submitting; %v", err)
		}
		grade := 80.0
		if _, _, err = ts.subSvc.Review(ctx, tutorIdent, sub.ID, submission.ReviewInput{Grade: &grade}); err != nil {
			t.Fatalf("reviewing; %v", err)
		}

		req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/algebra-quadratic-equations", studentToken)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("unknown lesson is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/calculus-limits", studentToken)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_lessonApi_submissionFlow(t *testing.T) {
	ts := setupServer(t)
	student := ts.createUser(t, "Awa Student", "awa123", user.RoleStudent)
	token := getToken(t, student)

	var subID string

	t.Run("draft save", func(t *testing.T) {
		body := marshallObj(t, submission.AnswerInput{
			Single: &submission.SingleAnswer{Answer: "x = ?", Reasoning: "still thinking"},
		})
		req, rec := newAuthRequest(http.MethodPut, "/v1/lessons/algebra-linear-equations/draft", token, body)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("draft = %d; body %s", rec.Code, rec.Body.String())
		}
		var sub submission.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
			t.Fatalf("unmarshalling submission; %v", err)
		}
		if sub.Status != submission.StatusDraft {
			t.Errorf("Status = %s, want %s", sub.Status, submission.StatusDraft)
		}
		subID = sub.ID
	})

	t.Run("incomplete submit is rejected", func(t *testing.T) {
		body := marshallObj(t, submission.AnswerInput{
			Single: &submission.SingleAnswer{Answer: "", Reasoning: "short"},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/lessons/algebra-linear-equations/submissions", token, body)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("submit = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		var fldErrs map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &fldErrs); err != nil {
			t.Fatalf("unmarshalling field errors; %v", err)
		}
		if fldErrs["answer"] != "Solution cannot be empty." {
			t.Errorf("answer error = %q", fldErrs["answer"])
		}
		if fldErrs["reasoning"] != "Reasoning must be at least 10 characters." {
			t.Errorf("reasoning error = %q", fldErrs["reasoning"])
		}
	})

	t.Run("submit over the draft", func(t *testing.T) {
		body := marshallObj(t, submission.AnswerInput{
			Single: &submission.SingleAnswer{
				Answer:    "x = 5",
				Reasoning: "Subtract 7 from both sides, then divide by 3.",
			},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/lessons/algebra-linear-equations/submissions", token, body)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("submit = %d; body %s", rec.Code, rec.Body.String())
		}
		var sub submission.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
			t.Fatalf("unmarshalling submission; %v", err)
		}
		if sub.ID != subID {
			t.Errorf("submit created a new record: %s != %s", sub.ID, subID)
		}
		if sub.Status != submission.StatusSubmitted {
			t.Errorf("Status = %s, want %s", sub.Status, submission.StatusSubmitted)
		}
	})

	t.Run("latest reflects the submit with AI feedback", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/algebra-linear-equations/submissions/latest", token)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("latest = %d; body %s", rec.Code, rec.Body.String())
		}
		var sub submission.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
			t.Fatalf("unmarshalling submission; %v", err)
		}
		if !sub.AIFeedback.Valid || sub.AIFeedback.String != ts.fbSvc.Feedback {
			t.Errorf("AIFeedback = %v, want %q", sub.AIFeedback, ts.fbSvc.Feedback)
		}
	})

	t.Run("history lists the student's records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/algebra-linear-equations/submissions", token)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("history = %d; body %s", rec.Code, rec.Body.String())
		}
		var subs []submission.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &subs); err != nil {
			t.Fatalf("unmarshalling submissions; %v", err)
		}
		if len(subs) != 1 {
			t.Errorf("got %d records, want 1", len(subs))
		}
	})
}

func Test_lessonApi_ratings(t *testing.T) {
	ts := setupServer(t)
	student := ts.createUser(t, "Awa Student", "awa123", user.RoleStudent)
	token := getToken(t, student)

	t.Run("invalid stars are rejected", func(t *testing.T) {
		body := marshallObj(t, lesson.NewRating{Stars: 6})
		req, rec := newAuthRequest(http.MethodPost, "/v1/lessons/algebra-linear-equations/ratings", token, body)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("rate = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("rate and list", func(t *testing.T) {
		body := marshallObj(t, lesson.NewRating{Stars: 4, Comment: "Clear explanations."})
		req, rec := newAuthRequest(http.MethodPost, "/v1/lessons/algebra-linear-equations/ratings", token, body)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("rate = %d; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/lessons/algebra-linear-equations/ratings", token)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("ratings = %d; body %s", rec.Code, rec.Body.String())
		}
		var ratings []lesson.Rating
		if err := json.Unmarshal(rec.Body.Bytes(), &ratings); err != nil {
			t.Fatalf("unmarshalling ratings; %v", err)
		}
		if len(ratings) != 1 {
			t.Fatalf("got %d ratings, want 1", len(ratings))
		}
		if ratings[0].Stars != 4 || ratings[0].UserID != student.ID {
			t.Errorf("rating = %+v", ratings[0])
		}
	})
}
