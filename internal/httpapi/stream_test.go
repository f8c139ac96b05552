package httpapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/curiolearn/curio-backend/internal/completion"
)

func TestProgressStream(t *testing.T) {
	ts, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/progress/stream"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dialing stream: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Give the handler a moment to register its subscription.
	time.Sleep(50 * time.Millisecond)

	doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-1"}`)

	var ev completion.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if ev.EventType != completion.EventQuestionCompleted {
		t.Errorf("event type = %q, want %q", ev.EventType, completion.EventQuestionCompleted)
	}
	if ev.StudentID != "stu-1" {
		t.Errorf("student = %q, want stu-1", ev.StudentID)
	}
}

func TestProgressStream_StudentFilter(t *testing.T) {
	ts, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/progress/stream?studentId=other"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dialing stream: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	time.Sleep(50 * time.Millisecond)

	doJSON(t, http.MethodPost, ts.URL+"/api/qna/completed",
		`{"studentId": "stu-1", "qnaId": "qna-1"}`)

	readCtx, readCancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer readCancel()

	var ev completion.Event
	if err := wsjson.Read(readCtx, conn, &ev); err == nil {
		t.Errorf("filtered stream delivered event %+v", ev)
	}
}
