package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/booking"
	"github.com/akilisha/funzo/core/lesson"
	"github.com/akilisha/funzo/core/submission"
	"github.com/akilisha/funzo/core/user"
	emailsvc "github.com/akilisha/funzo/services/email"
	feedbacksvc "github.com/akilisha/funzo/services/feedback"
	dummydb "github.com/akilisha/funzo/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type testServer struct {
	srv     Server
	usrSvc  *user.Service
	lsnSvc  *lesson.Service
	subSvc  *submission.Service
	bookSvc *booking.Service
	fbSvc   *feedbacksvc.DummyService
}

var testLessons = []lesson.Lesson{
	{
		ID:              "algebra-linear-equations",
		Subject:         lesson.SubjectMathematics,
		Branch:          "Algebra",
		Title:           "Linear Equations",
		Content:         "An equation of the first degree.",
		Question:        "Solve 3x + 7 = 22.",
		ExampleSolution: "x = 5",
		Position:        1,
	},
	{
		ID:              "algebra-quadratic-equations",
		Subject:         lesson.SubjectMathematics,
		Branch:          "Algebra",
		Title:           "Quadratic Equations",
		Content:         "Equations of the second degree.",
		Question:        "Solve x^2 - 5x + 6 = 0.",
		ExampleSolution: "x = 2 or x = 3",
		Position:        2,
	},
	{
		ID:      "mechanics-motion-basics",
		Subject: lesson.SubjectPhysics,
		Branch:  "Mechanics",
		Title:   "Motion Basics",
		Content: "Speed, velocity and acceleration.",
		SubQuestions: []lesson.SubQuestion{
			{ID: "a", Text: "Define average velocity.", Marks: 2},
			{ID: "b", Text: "A car covers 240 m in 30 s. Find its average speed.", Marks: 3},
		},
		Position: 1,
	},
}

var testGateRules = lesson.GateRules{
	"algebra-quadratic-equations": {
		LessonID: "algebra-linear-equations",
		MinGrade: lesson.UnlockThreshold,
	},
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	origDebug, origTestMode := core.Conf.Debug, core.Conf.TestMode
	core.Conf.Debug = false
	core.Conf.TestMode = true
	t.Cleanup(func() {
		core.Conf.Debug = origDebug
		core.Conf.TestMode = origTestMode
	})
	emailsvc.ClearSentMessages()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening db; %v", err)
	}
	logger := core.NewStdLogger(log.New(ioutil.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock()
	fbSvc := feedbacksvc.NewDummyService()

	lsnRepo := dummydb.NewLessonRepository(db)
	usrSvc := user.NewService(dummydb.NewUserRepository(db), mailSvc, logger)
	lsnSvc := lesson.NewService(lsnRepo)
	subSvc := submission.NewService(dummydb.NewSubmissionRepository(db), fbSvc, mailSvc, usrSvc, logger)
	bookSvc := booking.NewService(dummydb.NewBookingRepository(db))

	if err = lsnSvc.Load(context.Background(), testLessons...); err != nil {
		t.Fatalf("loading lessons; %v", err)
	}

	srv := NewServer(&Options{
		Address:        "localhost:8008",
		DisableReqLogs: true,
		Logger:         logger,
		UserSvc:        usrSvc,
		LessonSvc:      lsnSvc,
		SubmissionSvc:  subSvc,
		BookingSvc:     bookSvc,
		Gate:           lesson.NewGate(testGateRules, lsnRepo, subSvc),
	})
	return &testServer{
		srv:     srv,
		usrSvc:  usrSvc,
		lsnSvc:  lsnSvc,
		subSvc:  subSvc,
		bookSvc: bookSvc,
		fbSvc:   fbSvc,
	}
}

func (ts *testServer) createUser(t *testing.T, name, uname, role string) user.User {
	t.Helper()
	usr, err := ts.usrSvc.Create(context.Background(), user.NewUser{
		Name:     name,
		Username: uname,
		Email:    uname + "@test.funzo.app",
		Password: "LongSecret##1",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("creating user %s; %v", uname, err)
	}
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %s; wantData %s", rec.Body.Bytes(), tt.wantData)
	}
}
