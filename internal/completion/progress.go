package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/curiolearn/curio-backend/internal/catalog"
	"github.com/curiolearn/curio-backend/internal/platform/cache"
)

// AssignmentProgress is one lecture assignment annotated with the student's
// ledger state for its question.
type AssignmentProgress struct {
	catalog.Assignment
	IsCompleted bool    `json:"isCompleted"`
	Status      *Status `json:"status"`
	CanSubmit   bool    `json:"canSubmit"`
}

// LectureProgress is the per-(student, lecture) rollup.
type LectureProgress struct {
	LectureID          string               `json:"lectureId"`
	StudentID          string               `json:"studentId"`
	TotalQuestions     int                  `json:"totalQuestions"`
	CompletedQuestions int                  `json:"completedQuestions"`
	Progress           int                  `json:"progress"`
	IsLectureCompleted bool                 `json:"isLectureCompleted"`
	Assignments        []AssignmentProgress `json:"assignments"`
}

// LectureSummary is one lecture's contribution to a student's overall
// progress, counted from derived assignment-completion records.
type LectureSummary struct {
	LectureID            string `json:"lectureId"`
	LectureTitle         string `json:"lectureTitle"`
	TotalAssignments     int    `json:"totalAssignments"`
	CompletedAssignments int    `json:"completedAssignments"`
	Progress             int    `json:"progress"`
	IsCompleted          bool   `json:"isCompleted"`
}

// OverallProgress is the student-level rollup across every lecture that has
// at least one assignment.
type OverallProgress struct {
	StudentID         string           `json:"studentId"`
	TotalLectures     int              `json:"totalLectures"`
	CompletedLectures int              `json:"completedLectures"`
	OverallProgress   int              `json:"overallProgress"`
	Lectures          []LectureSummary `json:"lectureProgress"`
}

// AssignmentStatusReport answers a read of one derived record.
type AssignmentStatusReport struct {
	Record      *AssignmentCompletion `json:"record,omitempty"`
	Status      *Status               `json:"status"`
	IsCompleted bool                  `json:"isCompleted"`
}

// AssignmentLogEntry is one derived record joined with assignment and
// lecture metadata.
type AssignmentLogEntry struct {
	AssignmentCompletion
	LectureID    string               `json:"lectureId"`
	LectureTitle string               `json:"lectureTitle"`
	Difficulty   catalog.Difficulty   `json:"difficultyLevel"`
	QuestionType catalog.QuestionType `json:"qnaType"`
	Level        int                  `json:"assignmentLevel"`
}

// AssignmentLog is a student's derived records with per-status stats.
type AssignmentLog struct {
	StudentID   string               `json:"studentId"`
	Stats       StatusStats          `json:"stats"`
	Assignments []AssignmentLogEntry `json:"assignments"`
}

// StudentStanding is one student's row in a lecture report.
type StudentStanding struct {
	StudentID            string `json:"studentId"`
	StudentName          string `json:"studentName,omitempty"`
	CompletedAssignments int    `json:"completedAssignments"`
	TotalAssignments     int    `json:"totalAssignments"`
	Progress             int    `json:"progress"`
	IsLectureCompleted   bool   `json:"isLectureCompleted"`
}

// LectureReport rolls one lecture up across every student who attempted it.
type LectureReport struct {
	LectureID              string            `json:"lectureId"`
	LectureTitle           string            `json:"lectureName"`
	TotalAssignments       int               `json:"totalAssignments"`
	TotalStudentsAttempted int               `json:"totalStudentsAttempted"`
	StudentsCompleted      int               `json:"studentsCompleted"`
	Students               []StudentStanding `json:"studentProgress"`
}

// AggregatorConfig holds dependencies for the progress aggregator.
type AggregatorConfig struct {
	Catalog  catalog.Catalog
	Store    Store
	Cache    *cache.Cache // optional read-through cache
	CacheTTL time.Duration
}

// Aggregator computes progress rollups at read time. It holds no state of
// its own; the optional cache only trades freshness (bounded by the TTL and
// write-side invalidation) for read cost.
type Aggregator struct {
	catalog  catalog.Catalog
	store    Store
	cache    *cache.Cache
	cacheTTL time.Duration
}

// NewAggregator creates a progress aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &Aggregator{
		catalog:  cfg.Catalog,
		store:    cfg.Store,
		cache:    cfg.Cache,
		cacheTTL: ttl,
	}
}

// InvalidateStudent bumps the student's cache generation so the next read
// recomputes from source records.
func (a *Aggregator) InvalidateStudent(ctx context.Context, studentID string) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Client.Incr(ctx, versionKey(studentID)).Err()
}

// LectureProgress computes the per-lecture rollup for a student. The
// per-assignment rows read the question ledger, so progress reflects
// question completion even before a cascade has materialized the derived
// records.
func (a *Aggregator) LectureProgress(ctx context.Context, studentID, lectureID string) (LectureProgress, error) {
	if err := a.checkStudent(ctx, studentID); err != nil {
		return LectureProgress{}, err
	}

	key := fmt.Sprintf("lecture:%s", lectureID)
	if cached, ok := cacheGet[LectureProgress](ctx, a, studentID, key); ok {
		return cached, nil
	}

	assignments, err := a.catalog.AssignmentsByLecture(ctx, lectureID)
	if err != nil {
		return LectureProgress{}, err
	}

	out := LectureProgress{
		LectureID:   lectureID,
		StudentID:   studentID,
		Assignments: []AssignmentProgress{},
	}
	if len(assignments) == 0 {
		return out, nil
	}

	completed := 0
	for _, asg := range assignments {
		rec, found, err := a.store.GetQuestionCompletion(ctx, studentID, asg.QuestionID)
		if err != nil {
			return LectureProgress{}, err
		}

		ap := AssignmentProgress{Assignment: asg, CanSubmit: true}
		if found {
			status := rec.Status
			ap.Status = &status
			ap.IsCompleted = status == StatusCompleted
			ap.CanSubmit = status != StatusCompleted
		}
		if ap.IsCompleted {
			completed++
		}
		out.Assignments = append(out.Assignments, ap)
	}

	out.TotalQuestions = len(assignments)
	out.CompletedQuestions = completed
	out.Progress = percent(completed, len(assignments))
	out.IsLectureCompleted = completed == len(assignments)

	a.cachePut(ctx, studentID, key, out)
	return out, nil
}

// StudentOverallProgress folds LectureSummary over every lecture that has at
// least one assignment. Completed counts come from the derived
// assignment-completion records.
func (a *Aggregator) StudentOverallProgress(ctx context.Context, studentID string) (OverallProgress, error) {
	if err := a.checkStudent(ctx, studentID); err != nil {
		return OverallProgress{}, err
	}

	if cached, ok := cacheGet[OverallProgress](ctx, a, studentID, "overall"); ok {
		return cached, nil
	}

	lectures, err := a.catalog.LecturesWithAssignments(ctx)
	if err != nil {
		return OverallProgress{}, err
	}

	out := OverallProgress{StudentID: studentID, Lectures: []LectureSummary{}}

	sum := 0
	for _, lec := range lectures {
		assignments, err := a.catalog.AssignmentsByLecture(ctx, lec.ID)
		if err != nil {
			return OverallProgress{}, err
		}
		if len(assignments) == 0 {
			continue
		}

		ids := make([]string, len(assignments))
		for i, asg := range assignments {
			ids[i] = asg.ID
		}
		completed, err := a.store.CountCompletedAssignments(ctx, studentID, ids)
		if err != nil {
			return OverallProgress{}, err
		}

		summary := LectureSummary{
			LectureID:            lec.ID,
			LectureTitle:         lec.Title,
			TotalAssignments:     len(assignments),
			CompletedAssignments: completed,
			Progress:             percent(completed, len(assignments)),
		}
		summary.IsCompleted = summary.Progress == 100
		out.Lectures = append(out.Lectures, summary)

		sum += summary.Progress
		if summary.IsCompleted {
			out.CompletedLectures++
		}
	}

	out.TotalLectures = len(out.Lectures)
	if out.TotalLectures > 0 {
		out.OverallProgress = int(math.Round(float64(sum) / float64(out.TotalLectures)))
	}

	a.cachePut(ctx, studentID, "overall", out)
	return out, nil
}

// AssignmentStatus reads one derived record. A missing record reports
// isCompleted=false with a nil status.
func (a *Aggregator) AssignmentStatus(ctx context.Context, studentID, assignmentID string) (AssignmentStatusReport, error) {
	if err := a.checkStudent(ctx, studentID); err != nil {
		return AssignmentStatusReport{}, err
	}
	if _, err := a.catalog.GetAssignment(ctx, assignmentID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return AssignmentStatusReport{}, &NotFoundError{Entity: "assignment", ID: assignmentID}
		}
		return AssignmentStatusReport{}, err
	}

	rec, found, err := a.store.GetAssignmentCompletion(ctx, studentID, assignmentID)
	if err != nil {
		return AssignmentStatusReport{}, err
	}
	if !found {
		return AssignmentStatusReport{}, nil
	}

	status := rec.Status
	return AssignmentStatusReport{
		Record:      &rec,
		Status:      &status,
		IsCompleted: status == StatusCompleted,
	}, nil
}

// CompletedAssignments lists the student's derived records joined with
// assignment and lecture metadata, plus per-status stats.
func (a *Aggregator) CompletedAssignments(ctx context.Context, studentID string) (AssignmentLog, error) {
	if err := a.checkStudent(ctx, studentID); err != nil {
		return AssignmentLog{}, err
	}

	recs, err := a.store.AssignmentCompletionsByStudent(ctx, studentID)
	if err != nil {
		return AssignmentLog{}, err
	}

	log := AssignmentLog{StudentID: studentID, Assignments: []AssignmentLogEntry{}}
	for _, rec := range recs {
		entry := AssignmentLogEntry{AssignmentCompletion: rec}
		if asg, err := a.catalog.GetAssignment(ctx, rec.AssignmentID); err == nil {
			entry.LectureID = asg.LectureID
			entry.Difficulty = asg.Difficulty
			entry.QuestionType = asg.Type
			entry.Level = asg.Level
			if lec, err := a.catalog.GetLecture(ctx, asg.LectureID); err == nil {
				entry.LectureTitle = lec.Title
			}
		}
		log.Assignments = append(log.Assignments, entry)
		log.Stats.Tally(rec.Status)
	}
	return log, nil
}

// LectureReport rolls one lecture up across every student who has a derived
// record on any of its assignments.
func (a *Aggregator) LectureReport(ctx context.Context, lectureID string) (LectureReport, error) {
	lec, err := a.catalog.GetLecture(ctx, lectureID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return LectureReport{}, &NotFoundError{Entity: "lecture", ID: lectureID}
		}
		return LectureReport{}, err
	}

	assignments, err := a.catalog.AssignmentsByLecture(ctx, lectureID)
	if err != nil {
		return LectureReport{}, err
	}

	report := LectureReport{
		LectureID:    lectureID,
		LectureTitle: lec.Title,
		Students:     []StudentStanding{},
	}
	if len(assignments) == 0 {
		return report, nil
	}
	report.TotalAssignments = len(assignments)

	ids := make([]string, len(assignments))
	for i, asg := range assignments {
		ids[i] = asg.ID
	}
	completions, err := a.store.AssignmentCompletionsFor(ctx, ids)
	if err != nil {
		return LectureReport{}, err
	}

	byStudent := make(map[string]*StudentStanding)
	var order []string
	for _, rec := range completions {
		standing, ok := byStudent[rec.StudentID]
		if !ok {
			standing = &StudentStanding{
				StudentID:        rec.StudentID,
				TotalAssignments: len(assignments),
			}
			if stu, err := a.catalog.GetStudent(ctx, rec.StudentID); err == nil {
				standing.StudentName = stu.Name
			}
			byStudent[rec.StudentID] = standing
			order = append(order, rec.StudentID)
		}
		if rec.Status == StatusCompleted {
			standing.CompletedAssignments++
		}
	}

	for _, sid := range order {
		standing := byStudent[sid]
		standing.Progress = percent(standing.CompletedAssignments, standing.TotalAssignments)
		standing.IsLectureCompleted = standing.CompletedAssignments == standing.TotalAssignments
		if standing.IsLectureCompleted {
			report.StudentsCompleted++
		}
		report.Students = append(report.Students, *standing)
	}
	report.TotalStudentsAttempted = len(report.Students)

	return report, nil
}

func (a *Aggregator) checkStudent(ctx context.Context, studentID string) error {
	ok, err := a.catalog.StudentExists(ctx, studentID)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Entity: "student", ID: studentID}
	}
	return nil
}

// percent rounds 100*completed/total to the nearest integer; 0 when total is
// zero.
func percent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func versionKey(studentID string) string {
	return "curio:progress:ver:" + studentID
}

// cacheKey namespaces data keys by the student's current generation, so
// invalidation is a single INCR rather than a key scan.
func (a *Aggregator) cacheKey(ctx context.Context, studentID, suffix string) (string, bool) {
	if a.cache == nil {
		return "", false
	}
	ver, err := a.cache.Client.Get(ctx, versionKey(studentID)).Result()
	if err != nil {
		ver = "0"
	}
	return fmt.Sprintf("curio:progress:%s:v%s:%s", studentID, ver, suffix), true
}

func cacheGet[T any](ctx context.Context, a *Aggregator, studentID, suffix string) (T, bool) {
	var zero T
	key, ok := a.cacheKey(ctx, studentID, suffix)
	if !ok {
		return zero, false
	}
	raw, err := a.cache.Client.Get(ctx, key).Bytes()
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, false
	}
	return out, true
}

func (a *Aggregator) cachePut(ctx context.Context, studentID, suffix string, value any) {
	key, ok := a.cacheKey(ctx, studentID, suffix)
	if !ok {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Client.Set(ctx, key, raw, a.cacheTTL).Err(); err != nil {
		slog.Warn("progress cache write failed", "key", key, "error", err)
	}
}
