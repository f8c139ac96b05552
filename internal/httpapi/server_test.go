package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/curiolearn/curio-backend/internal/catalog"
	"github.com/curiolearn/curio-backend/internal/completion"
	"github.com/curiolearn/curio-backend/internal/httpapi"
	"github.com/curiolearn/curio-backend/internal/watch"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*httptest.Server, *completion.Broadcaster) {
	t.Helper()

	cat := catalog.NewMemory()
	cat.AddStudent(catalog.Student{ID: "stu-1", Name: "Ada"})
	cat.AddQuestion(catalog.Question{ID: "qna-1", Type: catalog.TypeMCQ})
	cat.AddQuestion(catalog.Question{ID: "qna-2", Type: catalog.TypeCoding})
	cat.AddLecture(catalog.Lecture{ID: "lec-1", Title: "Loops"})
	cat.AddAssignment(catalog.Assignment{
		ID: "asg-1", LectureID: "lec-1", QuestionID: "qna-1",
		Difficulty: catalog.DifficultyEasy, Type: catalog.TypeMCQ, Level: 1,
	})
	cat.AddAssignment(catalog.Assignment{
		ID: "asg-2", LectureID: "lec-1", QuestionID: "qna-2",
		Difficulty: catalog.DifficultyMedium, Type: catalog.TypeCoding, Level: 2,
	})

	store := completion.NewMemoryStore()
	broadcaster := completion.NewBroadcaster()
	engine := completion.NewEngine(completion.EngineConfig{
		Catalog:     cat,
		Store:       store,
		Broadcaster: broadcaster,
	})
	aggregator := completion.NewAggregator(completion.AggregatorConfig{
		Catalog: cat,
		Store:   store,
	})
	tracker := watch.NewTracker(watch.TrackerConfig{Catalog: cat})

	srv := httpapi.New(httpapi.Config{
		Engine:      engine,
		Aggregator:  aggregator,
		Tracker:     tracker,
		Broadcaster: broadcaster,
	})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, broadcaster
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return resp, env
}

func TestMarkCompleted(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", resp.StatusCode, env.Error)
	}
	if !env.Success {
		t.Fatalf("success = false: %s", env.Error)
	}

	var data struct {
		Record struct {
			Status completion.Status `json:"status"`
		} `json:"record"`
		AssignmentAutoCompleted bool `json:"assignmentAutoCompleted"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if data.Record.Status != completion.StatusCompleted {
		t.Errorf("status = %q, want completed", data.Record.Status)
	}
	if data.AssignmentAutoCompleted {
		t.Error("cascade must not fire with qna-2 incomplete")
	}

	// Second completion finishes the lecture.
	_, env = doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-2"}`)
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if !data.AssignmentAutoCompleted {
		t.Error("cascade should fire once the lecture is complete")
	}
}

func TestMarkCompleted_Terminal(t *testing.T) {
	ts, _ := newTestServer(t)

	doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-1"}`)

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-1"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	want := "This question has already been completed and cannot be resubmitted"
	if env.Error != want {
		t.Errorf("error = %q, want %q", env.Error, want)
	}
}

func TestMarkCompleted_Validation(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing qnaId", `{"studentId": "stu-1"}`},
		{"unknown status", `{"studentId": "stu-1", "qnaId": "qna-1", "status": "done"}`},
		{"not json", `not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if env.Success {
				t.Error("success should be false")
			}
		})
	}
}

func TestMarkCompleted_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "ghost", "qnaId": "qna-1"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown student status = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "ghost"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown question status = %d, want 404", resp.StatusCode)
	}
}

func TestMarkInProgress(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/qna/in-progress",
		`{"studentId": "stu-1", "qnaId": "qna-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", resp.StatusCode, env.Error)
	}

	var rec completion.QuestionCompletion
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if rec.Status != completion.StatusInProgress {
		t.Errorf("status = %q, want inProgress", rec.Status)
	}
}

func TestQuestionStatus(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/qna/qna-1/status/stu-1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var rep completion.StatusReport
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if rep.IsCompleted || !rep.CanSubmit {
		t.Errorf("unattempted report = %+v", rep)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/qna/ghost/status/stu-1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown question status = %d, want 404", resp.StatusCode)
	}
}

func TestLectureProgressRoute(t *testing.T) {
	ts, _ := newTestServer(t)

	doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-1"}`)

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/students/stu-1/lectures/lec-1/progress", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var progress completion.LectureProgress
	if err := json.Unmarshal(env.Data, &progress); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if progress.Progress != 50 {
		t.Errorf("progress = %d, want 50", progress.Progress)
	}
}

func TestOverallProgressRoute(t *testing.T) {
	ts, _ := newTestServer(t)

	doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-1"}`)
	doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-2"}`)

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/students/stu-1/progress", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var overall completion.OverallProgress
	if err := json.Unmarshal(env.Data, &overall); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if overall.OverallProgress != 100 || overall.CompletedLectures != 1 {
		t.Errorf("overall = %+v", overall)
	}
}

func TestLectureReportRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-1"}`)
	doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-2"}`)

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/lectures/lec-1/report", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var rep completion.LectureReport
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if rep.StudentsCompleted != 1 {
		t.Errorf("StudentsCompleted = %d, want 1", rep.StudentsCompleted)
	}

	xresp, err := http.Get(ts.URL + "/api/lectures/lec-1/report.xlsx")
	if err != nil {
		t.Fatalf("GET report.xlsx: %v", err)
	}
	defer xresp.Body.Close()
	if xresp.StatusCode != http.StatusOK {
		t.Fatalf("xlsx status = %d, want 200", xresp.StatusCode)
	}
	if ct := xresp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := xresp.Header.Get("Content-Disposition"); !strings.Contains(cd, "lecture-report-lec-1.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestWatchRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/watch",
		`{"studentId": "stu-1", "lectureId": "lec-1", "watchedTime": 90}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", resp.StatusCode, env.Error)
	}

	resp, env = doJSON(t, http.MethodGet, ts.URL+"/api/watch/progress/stu-1/lec-1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var progress watch.Progress
	if err := json.Unmarshal(env.Data, &progress); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if progress.WatchedTime != 90 {
		t.Errorf("WatchedTime = %d, want 90", progress.WatchedTime)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/watch",
		`{"studentId": "stu-1", "lectureId": "lec-1", "watchedTime": -5}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative time status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/watch/stu-1/lec-1", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d, want 200", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/watch/stu-1/lec-1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, env := doJSON(t, http.MethodGet, ts.URL+path, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
		if !env.Success {
			t.Errorf("%s success = false", path)
		}
	}
}
