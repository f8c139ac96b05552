package catalog

import "time"

// QuestionType is the closed set of gradable question kinds.
type QuestionType string

const (
	TypeMCQ       QuestionType = "mcq"
	TypeCoding    QuestionType = "coding"
	TypeParagraph QuestionType = "paragraph"
	TypeBlockly   QuestionType = "blockly"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeMCQ, TypeCoding, TypeParagraph, TypeBlockly:
		return true
	}
	return false
}

// Difficulty is the assignment difficulty tag.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty level.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question is a single gradable item. Immutable once referenced by an
// assignment.
type Question struct {
	ID        string       `json:"id"`
	Type      QuestionType `json:"qnaType"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Lecture is a content unit grouping assignments.
type Lecture struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Assignment places one question inside one lecture. Level orders
// assignments for display only; several assignments may share a level.
type Assignment struct {
	ID         string       `json:"id"`
	LectureID  string       `json:"lectureId"`
	QuestionID string       `json:"qnaId"`
	Difficulty Difficulty   `json:"difficultyLevel"`
	Type       QuestionType `json:"qnaType"`
	Level      int          `json:"assignmentLevel"`
}

// Student is the minimal student identity the completion core needs.
type Student struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Level int    `json:"level"`
	Class string `json:"class,omitempty"`
}
