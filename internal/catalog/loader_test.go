package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSeedFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing seed file: %v", err)
	}
}

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()

	writeSeedFile(t, dir, "loops.yaml", `
id: lec-loops
title: Introduction to Loops
description: for and while loops
url: https://example.com/loops
assignments:
  - id: asg-1
    qna_id: qna-1
    qna_type: coding
    difficulty: easy
    level: 1
  - id: asg-2
    qna_id: qna-2
    qna_type: mcq
    difficulty: medium
    level: 2
`)
	writeSeedFile(t, dir, "students.yaml", `
students:
  - id: stu-1
    name: Aisha
    level: 3
  - id: stu-2
    name: Ben
    level: 1
`)

	m, err := LoadSeed(dir)
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}

	ctx := t.Context()

	if ok, _ := m.StudentExists(ctx, "stu-1"); !ok {
		t.Error("stu-1 should exist")
	}
	if ok, _ := m.StudentExists(ctx, "stu-3"); ok {
		t.Error("stu-3 should not exist")
	}

	lec, err := m.GetLecture(ctx, "lec-loops")
	if err != nil {
		t.Fatalf("GetLecture() error = %v", err)
	}
	if lec.Title != "Introduction to Loops" {
		t.Errorf("Title = %q", lec.Title)
	}

	assignments, err := m.AssignmentsByLecture(ctx, "lec-loops")
	if err != nil {
		t.Fatalf("AssignmentsByLecture() error = %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("assignments = %d, want 2", len(assignments))
	}
	if assignments[0].ID != "asg-1" || assignments[1].ID != "asg-2" {
		t.Errorf("assignments not ordered by level: %v", assignments)
	}

	q, err := m.GetQuestion(ctx, "qna-2")
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}
	if q.Type != TypeMCQ {
		t.Errorf("Type = %q, want mcq", q.Type)
	}
}

func TestLoadSeed_InvalidAssignment(t *testing.T) {
	dir := t.TempDir()

	writeSeedFile(t, dir, "bad.yaml", `
id: lec-bad
title: Bad Lecture
assignments:
  - id: asg-1
    qna_id: qna-1
    qna_type: essay
    difficulty: easy
`)

	if _, err := LoadSeed(dir); err == nil {
		t.Fatal("LoadSeed() should reject unknown qna_type")
	}
}

func TestLoadSeed_SkipsNonLectureYAML(t *testing.T) {
	dir := t.TempDir()

	writeSeedFile(t, dir, "notes.yaml", `just: some config`)

	m, err := LoadSeed(dir)
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	lectures, _ := m.LecturesWithAssignments(t.Context())
	if len(lectures) != 0 {
		t.Errorf("lectures = %d, want 0", len(lectures))
	}
}
