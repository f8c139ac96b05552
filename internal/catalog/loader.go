package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// lectureDoc is the YAML shape of a seed lecture file.
type lectureDoc struct {
	ID          string          `yaml:"id"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	URL         string          `yaml:"url"`
	Assignments []assignmentDoc `yaml:"assignments"`
}

type assignmentDoc struct {
	ID         string `yaml:"id"`
	QnaID      string `yaml:"qna_id"`
	QnaType    string `yaml:"qna_type"`
	Difficulty string `yaml:"difficulty"`
	Level      int    `yaml:"level"`
}

type studentDoc struct {
	Students []Student `yaml:"students"`
}

// LoadSeed walks rootDir and loads lecture/assignment/student seed YAML into
// an in-memory catalog. Files named students.yaml (or .yml) list students;
// every other YAML file with an id and title is treated as a lecture.
// Questions are registered from the assignments that reference them.
func LoadSeed(rootDir string) (*Memory, error) {
	m := NewMemory()

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		base := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(path), ".yaml"), ".yml")
		if base == "students" {
			return loadStudents(m, path)
		}
		return loadLecture(m, path)
	})
	if err != nil {
		return nil, fmt.Errorf("loading seed: %w", err)
	}

	slog.Info("catalog seed loaded", "path", rootDir)
	return m, nil
}

func loadStudents(m *Memory, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc studentDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, s := range doc.Students {
		if s.ID == "" {
			continue
		}
		m.AddStudent(s)
	}
	return nil
}

func loadLecture(m *Memory, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc lectureDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid lecture YAML", "path", path, "error", err)
		return nil
	}

	if doc.ID == "" || doc.Title == "" {
		return nil // Not a lecture file
	}

	m.AddLecture(Lecture{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		URL:         doc.URL,
	})

	for _, a := range doc.Assignments {
		qt := QuestionType(a.QnaType)
		diff := Difficulty(a.Difficulty)
		if !qt.Valid() || !diff.Valid() || a.ID == "" || a.QnaID == "" {
			return fmt.Errorf("invalid assignment %q in %s", a.ID, path)
		}

		m.AddQuestion(Question{ID: a.QnaID, Type: qt})
		m.AddAssignment(Assignment{
			ID:         a.ID,
			LectureID:  doc.ID,
			QuestionID: a.QnaID,
			Difficulty: diff,
			Type:       qt,
			Level:      a.Level,
		})
	}
	return nil
}
