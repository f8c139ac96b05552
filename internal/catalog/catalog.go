// Package catalog exposes read-only access to the question registry and the
// lecture/assignment structure the completion engine cascades over.
package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Catalog provides structure reads. Implementations must return assignments
// for a lecture ordered by their display level.
type Catalog interface {
	StudentExists(ctx context.Context, studentID string) (bool, error)
	GetStudent(ctx context.Context, studentID string) (Student, error)
	GetQuestion(ctx context.Context, questionID string) (Question, error)
	GetLecture(ctx context.Context, lectureID string) (Lecture, error)
	GetAssignment(ctx context.Context, assignmentID string) (Assignment, error)
	AssignmentsByLecture(ctx context.Context, lectureID string) ([]Assignment, error)
	AssignmentsByQuestion(ctx context.Context, questionID string) ([]Assignment, error)
	LecturesWithAssignments(ctx context.Context) ([]Lecture, error)
}

// Memory is an in-memory Catalog for tests and seeded dev mode.
type Memory struct {
	mu          sync.RWMutex
	students    map[string]Student
	questions   map[string]Question
	lectures    map[string]Lecture
	assignments map[string]Assignment
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		students:    make(map[string]Student),
		questions:   make(map[string]Question),
		lectures:    make(map[string]Lecture),
		assignments: make(map[string]Assignment),
	}
}

// AddStudent registers a student.
func (m *Memory) AddStudent(s Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = s
}

// AddQuestion registers a question.
func (m *Memory) AddQuestion(q Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
}

// AddLecture registers a lecture.
func (m *Memory) AddLecture(l Lecture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lectures[l.ID] = l
}

// AddAssignment registers an assignment.
func (m *Memory) AddAssignment(a Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = a
}

func (m *Memory) StudentExists(_ context.Context, studentID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.students[studentID]
	return ok, nil
}

func (m *Memory) GetStudent(_ context.Context, studentID string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[studentID]
	if !ok {
		return Student{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) GetQuestion(_ context.Context, questionID string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[questionID]
	if !ok {
		return Question{}, ErrNotFound
	}
	return q, nil
}

func (m *Memory) GetLecture(_ context.Context, lectureID string) (Lecture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lectures[lectureID]
	if !ok {
		return Lecture{}, ErrNotFound
	}
	return l, nil
}

func (m *Memory) GetAssignment(_ context.Context, assignmentID string) (Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[assignmentID]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) AssignmentsByLecture(_ context.Context, lectureID string) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Assignment
	for _, a := range m.assignments {
		if a.LectureID == lectureID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) AssignmentsByQuestion(_ context.Context, questionID string) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Assignment
	for _, a := range m.assignments {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) LecturesWithAssignments(_ context.Context) ([]Lecture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	for _, a := range m.assignments {
		seen[a.LectureID] = true
	}
	var out []Lecture
	for id := range seen {
		if l, ok := m.lectures[id]; ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
