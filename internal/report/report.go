// Package report renders progress rollups as spreadsheets.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/curiolearn/curio-backend/internal/completion"
)

const sheetName = "Lecture Report"

// headers for the per-student table.
var headers = []string{"Student ID", "Student Name", "Completed", "Total", "Progress (%)", "Lecture Completed"}

// WriteLectureXLSX renders a lecture report as an xlsx workbook. Student
// rows are ordered by name using locale-aware collation, with ID as the
// tiebreaker.
func WriteLectureXLSX(w io.Writer, rep completion.LectureReport) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	meta := [][2]any{
		{"Lecture", rep.LectureTitle},
		{"Assignments", rep.TotalAssignments},
		{"Students attempted", rep.TotalStudentsAttempted},
		{"Students completed", rep.StudentsCompleted},
	}
	for i, kv := range meta {
		if err := setRow(f, i+1, kv[0], kv[1]); err != nil {
			return err
		}
	}

	const tableStart = 6
	headerCells := make([]any, len(headers))
	for i, h := range headers {
		headerCells[i] = h
	}
	if err := setRow(f, tableStart, headerCells...); err != nil {
		return err
	}

	for i, s := range sortedStudents(rep.Students) {
		err := setRow(f, tableStart+1+i,
			s.StudentID, s.StudentName, s.CompletedAssignments,
			s.TotalAssignments, s.Progress, s.IsLectureCompleted)
		if err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// Filename is the suggested download name for a lecture report.
func Filename(rep completion.LectureReport) string {
	return fmt.Sprintf("lecture-report-%s.xlsx", rep.LectureID)
}

func sortedStudents(students []completion.StudentStanding) []completion.StudentStanding {
	out := make([]completion.StudentStanding, len(students))
	copy(out, students)

	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StudentName != out[j].StudentName {
			return c.CompareString(out[i].StudentName, out[j].StudentName) < 0
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}

func setRow(f *excelize.File, row int, values ...any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("setting cell %s: %w", cell, err)
		}
	}
	return nil
}
