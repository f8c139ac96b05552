package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/curiolearn/curio-backend/internal/platform/config"
)

func writeSeed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	students := `students:
  - id: stu-1
    name: Ada
`
	lecture := `id: lec-1
title: Loops
assignments:
  - id: asg-1
    qna_id: qna-1
    qna_type: mcq
    difficulty: easy
    level: 1
`
	if err := os.WriteFile(filepath.Join(dir, "students.yaml"), []byte(students), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "loops.yaml"), []byte(lecture), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestBuildDependencies_SeedMode(t *testing.T) {
	cfg := &config.Config{
		Seed:  config.SeedConfig{Enabled: true, Path: writeSeed(t)},
		Cache: config.CacheConfig{Enabled: false},
	}

	deps, err := buildDependencies(t.Context(), cfg)
	if err != nil {
		t.Fatalf("buildDependencies() error = %v", err)
	}
	defer deps.close()

	mux := deps.api.Routes()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	// The seeded catalog serves real requests end to end.
	req = httptest.NewRequest(http.MethodGet, "/api/students/stu-1/lectures/lec-1/progress", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("progress status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestBuildDependencies_BadSeedPath(t *testing.T) {
	cfg := &config.Config{
		Seed: config.SeedConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "missing")},
	}

	if _, err := buildDependencies(t.Context(), cfg); err == nil {
		t.Error("missing seed directory should fail")
	}
}
