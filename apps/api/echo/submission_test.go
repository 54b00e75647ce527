package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/akilisha/funzo/core/submission"
	"github.com/akilisha/funzo/core/user"
)

func Test_submissionApi(t *testing.T) {
	ts := setupServer(t)
	student := ts.createUser(t, "Awa Student", "awa123", user.RoleStudent)
	other := ts.createUser(t, "Bem Student", "bem123", user.RoleStudent)
	tutor := ts.createUser(t, "Tutu Tutor", "tutu12", user.RoleTutor)
	studentToken := getToken(t, student)
	otherToken := getToken(t, other)
	tutorToken := getToken(t, tutor)

	ctx := context.Background()
	studentIdent := user.Identity{ID: student.ID, Role: user.RoleStudent}
	l, err := ts.lsnSvc.GetByID(ctx, "algebra-linear-equations")
	if err != nil {
		t.Fatalf("finding lesson; %v", err)
	}
	sub, err := ts.subSvc.Submit(ctx, studentIdent, l, submission.AnswerInput{
		Single: &submission.SingleAnswer{
			Answer:    "x = 4",
			Reasoning: "Moved the 7 across and divided.",
		},
	})
	if err != nil {
		t.Fatalf("submitting; %v", err)
	}

	tests := []httpTest{
		{
			name:     "dashboard: students are forbidden",
			method:   http.MethodGet,
			path:     "/v1/submissions",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "dashboard: tutors see everything",
			method:   http.MethodGet,
			path:     "/v1/submissions",
			token:    tutorToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "metrics: students are forbidden",
			method:   http.MethodGet,
			path:     "/v1/submissions/metrics",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "metrics: counts the dashboard",
			method:   http.MethodGet,
			path:     "/v1/submissions/metrics",
			token:    tutorToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, submission.DashboardMetrics{
				TotalSubmissions: 1,
				PendingReviews:   1,
				ActiveStudents:   1,
			}),
		},
		{
			name:     "retrieve: owner sees their record",
			method:   http.MethodGet,
			path:     "/v1/submissions/" + sub.ID,
			token:    studentToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "retrieve: another student is forbidden",
			method:   http.MethodGet,
			path:     "/v1/submissions/" + sub.ID,
			token:    otherToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "retrieve: unknown record is a 404",
			method:   http.MethodGet,
			path:     "/v1/submissions/missing",
			token:    studentToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "submission not found"}),
		},
		{
			name:     "review: students are forbidden",
			method:   http.MethodPost,
			path:     "/v1/submissions/" + sub.ID + "/review",
			body:     marshallObj(t, submission.ReviewInput{TutorFeedback: "nope"}),
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			ts.srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("review records the verdict with an advisory", func(t *testing.T) {
		grade := 85.0
		body := marshallObj(t, submission.ReviewInput{
			TutorFeedback: "Recheck the division step; the method is right.",
			Grade:         &grade,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/submissions/"+sub.ID+"/review", tutorToken, body)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("review = %d; body %s", rec.Code, rec.Body.String())
		}

		var resp ReviewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling ReviewResponse; %v", err)
		}
		if resp.Submission.Status != submission.StatusReviewed {
			t.Errorf("Status = %s, want %s", resp.Submission.Status, submission.StatusReviewed)
		}
		if !resp.Submission.Grade.Valid || resp.Submission.Grade.Float64 != grade {
			t.Errorf("Grade = %v, want %v", resp.Submission.Grade, grade)
		}
		if resp.Advisory == nil || !resp.Advisory.UnlockNextLesson {
			t.Errorf("Advisory = %+v, want an unlock", resp.Advisory)
		}
	})

	t.Run("reviewing twice conflicts", func(t *testing.T) {
		body := marshallObj(t, submission.ReviewInput{TutorFeedback: "again"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/submissions/"+sub.ID+"/review", tutorToken, body)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("second review = %d, want %d; body %s", rec.Code, http.StatusConflict, rec.Body.String())
		}
	})

	t.Run("stream: students are forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/submissions/stream", studentToken)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("stream = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("feedback retry on own submission", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/submissions/"+sub.ID+"/feedback", studentToken)
		ts.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("feedback = %d; body %s", rec.Code, rec.Body.String())
		}
		var got submission.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling submission; %v", err)
		}
		if !got.AIFeedback.Valid || got.AIFeedback.String != ts.fbSvc.Feedback {
			t.Errorf("AIFeedback = %v, want %q", got.AIFeedback, ts.fbSvc.Feedback)
		}
	})
}

func Test_submissionApi_stream(t *testing.T) {
	ts := setupServer(t)
	student := ts.createUser(t, "Awa Student", "awa123", user.RoleStudent)
	tutor := ts.createUser(t, "Tutu Tutor", "tutu12", user.RoleTutor)

	ctx := context.Background()
	l, err := ts.lsnSvc.GetByID(ctx, "algebra-linear-equations")
	if err != nil {
		t.Fatalf("finding lesson; %v", err)
	}

	reqCtx, stop := context.WithCancel(ctx)
	req, rec := newAuthRequest(http.MethodGet, "/v1/submissions/stream", getToken(t, tutor))
	req = req.WithContext(reqCtx)
	done := make(chan struct{})
	go func() {
		ts.srv.ServeHTTP(rec, req)
		close(done)
	}()

	// the subscription attaches inside the streaming handler; keep saving
	// drafts until it has had a chance to catch one
	ident := user.Identity{ID: student.ID, Role: user.RoleStudent}
	var sub submission.Submission
	for i := 0; i < 30; i++ {
		sub, err = ts.subSvc.SaveDraft(ctx, ident, l, submission.AnswerInput{
			Single: &submission.SingleAnswer{Answer: "x = 5"},
		})
		if err != nil {
			t.Fatalf("saving draft; %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	stop()
	<-done

	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want %q", ct, "text/event-stream")
	}
	body := rec.Body.String()
	if !strings.Contains(body, "data: ") || !strings.Contains(body, sub.ID) {
		t.Errorf("stream body = %q, want draft events", body)
	}
}
