package watch_test

import (
	"testing"

	"github.com/curiolearn/curio-backend/internal/catalog"
	"github.com/curiolearn/curio-backend/internal/completion"
	"github.com/curiolearn/curio-backend/internal/watch"
)

func newTracker(t *testing.T) (*watch.Tracker, *catalog.Memory) {
	t.Helper()

	cat := catalog.NewMemory()
	cat.AddStudent(catalog.Student{ID: "stu-1", Name: "Ada"})
	cat.AddLecture(catalog.Lecture{
		ID: "lec-1", Title: "Loops", Description: "Intro to loops", URL: "https://videos.example/loops",
	})
	cat.AddLecture(catalog.Lecture{
		ID: "lec-2", Title: "Conditionals", URL: "https://videos.example/conditionals",
	})

	return watch.NewTracker(watch.TrackerConfig{Catalog: cat}), cat
}

func TestUpdateProgress(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := t.Context()

	rec, err := tracker.UpdateProgress(ctx, "stu-1", "lec-1", 120)
	if err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if rec.WatchedTime != 120 {
		t.Errorf("WatchedTime = %d, want 120", rec.WatchedTime)
	}

	// Seeking backwards overwrites rather than keeping the maximum.
	rec, err = tracker.UpdateProgress(ctx, "stu-1", "lec-1", 30)
	if err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if rec.WatchedTime != 30 {
		t.Errorf("WatchedTime = %d, want 30", rec.WatchedTime)
	}
}

func TestUpdateProgress_Validation(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := t.Context()

	if _, err := tracker.UpdateProgress(ctx, "stu-1", "lec-1", -1); err == nil {
		t.Error("negative watched time should be rejected")
	}
	if _, err := tracker.UpdateProgress(ctx, "ghost", "lec-1", 10); !completion.IsNotFound(err) {
		t.Errorf("unknown student error = %v, want NotFoundError", err)
	}
	if _, err := tracker.UpdateProgress(ctx, "stu-1", "ghost", 10); !completion.IsNotFound(err) {
		t.Errorf("unknown lecture error = %v, want NotFoundError", err)
	}
}

func TestGetProgress(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := t.Context()

	got, err := tracker.GetProgress(ctx, "stu-1", "lec-1")
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if got.WatchedTime != 0 || got.Record != nil {
		t.Errorf("unwatched progress = %+v, want zero", got)
	}

	tracker.UpdateProgress(ctx, "stu-1", "lec-1", 45)

	got, err = tracker.GetProgress(ctx, "stu-1", "lec-1")
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if got.WatchedTime != 45 {
		t.Errorf("WatchedTime = %d, want 45", got.WatchedTime)
	}
	if got.LectureTitle != "Loops" || got.LectureURL != "https://videos.example/loops" {
		t.Errorf("lecture join = %q %q", got.LectureTitle, got.LectureURL)
	}
}

func TestStudentHistory(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := t.Context()

	tracker.UpdateProgress(ctx, "stu-1", "lec-1", 100)
	tracker.UpdateProgress(ctx, "stu-1", "lec-2", 20)

	history, err := tracker.StudentHistory(ctx, "stu-1")
	if err != nil {
		t.Fatalf("StudentHistory() error = %v", err)
	}
	if history.TotalVideos != 2 {
		t.Fatalf("TotalVideos = %d, want 2", history.TotalVideos)
	}
	for _, entry := range history.History {
		if entry.LectureTitle == "" {
			t.Errorf("entry %s missing lecture metadata", entry.LectureID)
		}
	}

	if _, err := tracker.StudentHistory(ctx, "ghost"); !completion.IsNotFound(err) {
		t.Errorf("unknown student error = %v, want NotFoundError", err)
	}
}

func TestRecentlyWatched(t *testing.T) {
	tracker, cat := newTracker(t)
	ctx := t.Context()

	cat.AddLecture(catalog.Lecture{ID: "lec-3", Title: "Functions"})
	for _, lid := range []string{"lec-1", "lec-2", "lec-3"} {
		if _, err := tracker.UpdateProgress(ctx, "stu-1", lid, 10); err != nil {
			t.Fatalf("UpdateProgress(%s) error = %v", lid, err)
		}
	}

	recent, err := tracker.RecentlyWatched(ctx, "stu-1", 2)
	if err != nil {
		t.Fatalf("RecentlyWatched() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("entries = %d, want 2", len(recent))
	}
}

func TestDeleteProgress(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := t.Context()

	if err := tracker.DeleteProgress(ctx, "stu-1", "lec-1"); !completion.IsNotFound(err) {
		t.Errorf("missing record error = %v, want NotFoundError", err)
	}

	tracker.UpdateProgress(ctx, "stu-1", "lec-1", 10)
	if err := tracker.DeleteProgress(ctx, "stu-1", "lec-1"); err != nil {
		t.Fatalf("DeleteProgress() error = %v", err)
	}

	got, _ := tracker.GetProgress(ctx, "stu-1", "lec-1")
	if got.WatchedTime != 0 || got.Record != nil {
		t.Errorf("progress after delete = %+v, want zero", got)
	}
}
