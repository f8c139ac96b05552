// Package httpapi exposes the completion engine over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/curiolearn/curio-backend/internal/completion"
	"github.com/curiolearn/curio-backend/internal/platform/cache"
	"github.com/curiolearn/curio-backend/internal/platform/database"
	"github.com/curiolearn/curio-backend/internal/report"
	"github.com/curiolearn/curio-backend/internal/watch"
)

// Config holds the server's dependencies. DB and Cache are optional and
// only drive readiness checks.
type Config struct {
	Engine      *completion.Engine
	Aggregator  *completion.Aggregator
	Tracker     *watch.Tracker
	Broadcaster *completion.Broadcaster
	DB          *database.DB
	Cache       *cache.Cache
}

// Server routes HTTP requests to the engine, aggregator, and tracker.
type Server struct {
	engine      *completion.Engine
	aggregator  *completion.Aggregator
	tracker     *watch.Tracker
	broadcaster *completion.Broadcaster
	db          *database.DB
	cache       *cache.Cache
}

// New creates an HTTP server over the given dependencies.
func New(cfg Config) *Server {
	return &Server{
		engine:      cfg.Engine,
		aggregator:  cfg.Aggregator,
		tracker:     cfg.Tracker,
		broadcaster: cfg.Broadcaster,
		db:          cfg.DB,
		cache:       cfg.Cache,
	}
}

// Routes builds the request multiplexer.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/qna/completed", s.handleMarkCompleted)
	mux.HandleFunc("POST /api/qna/in-progress", s.handleMarkInProgress)
	mux.HandleFunc("GET /api/qna/{qnaID}/status/{studentID}", s.handleQuestionStatus)

	mux.HandleFunc("GET /api/students/{studentID}/qna", s.handleStudentQuestions)
	mux.HandleFunc("GET /api/students/{studentID}/lectures/{lectureID}/progress", s.handleLectureProgress)
	mux.HandleFunc("GET /api/students/{studentID}/progress", s.handleOverallProgress)
	mux.HandleFunc("GET /api/students/{studentID}/assignments", s.handleCompletedAssignments)
	mux.HandleFunc("GET /api/assignments/{assignmentID}/status/{studentID}", s.handleAssignmentStatus)

	mux.HandleFunc("GET /api/lectures/{lectureID}/report", s.handleLectureReport)
	mux.HandleFunc("GET /api/lectures/{lectureID}/report.xlsx", s.handleLectureReportXLSX)

	mux.HandleFunc("GET /api/progress/stream", s.handleProgressStream)

	mux.HandleFunc("POST /api/watch", s.handleUpdateWatch)
	mux.HandleFunc("GET /api/watch/progress/{studentID}/{lectureID}", s.handleWatchProgress)
	mux.HandleFunc("GET /api/watch/history/{studentID}", s.handleWatchHistory)
	mux.HandleFunc("GET /api/watch/recent/{studentID}", s.handleRecentlyWatched)
	mux.HandleFunc("DELETE /api/watch/{studentID}/{lectureID}", s.handleDeleteWatch)

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, "ok", nil)
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.cache != nil {
		if err := s.cache.HealthCheck(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	respondSuccess(w, http.StatusOK, "ready", nil)
}

func (s *Server) handleMarkCompleted(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, markCompletedSchema)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		StudentID string            `json:"studentId"`
		QnaID     string            `json:"qnaId"`
		Status    completion.Status `json:"status"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}
	if req.Status == "" {
		req.Status = completion.StatusCompleted
	}

	result, err := s.engine.SetStatus(r.Context(), req.StudentID, req.QnaID, req.Status)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Qna status recorded successfully", result)
}

func (s *Server) handleMarkInProgress(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, markInProgressSchema)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		StudentID string `json:"studentId"`
		QnaID     string `json:"qnaId"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	rec, err := s.engine.MarkInProgress(r.Context(), req.StudentID, req.QnaID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Qna marked as in progress", rec)
}

func (s *Server) handleQuestionStatus(w http.ResponseWriter, r *http.Request) {
	rep, err := s.engine.GetStatus(r.Context(), r.PathValue("studentID"), r.PathValue("qnaID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Qna status fetched successfully", rep)
}

func (s *Server) handleStudentQuestions(w http.ResponseWriter, r *http.Request) {
	log, err := s.engine.CompletedQuestions(r.Context(), r.PathValue("studentID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Qna completions fetched successfully", log)
}

func (s *Server) handleLectureProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.aggregator.LectureProgress(r.Context(), r.PathValue("studentID"), r.PathValue("lectureID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Lecture progress fetched successfully", progress)
}

func (s *Server) handleOverallProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.aggregator.StudentOverallProgress(r.Context(), r.PathValue("studentID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Overall progress fetched successfully", progress)
}

func (s *Server) handleCompletedAssignments(w http.ResponseWriter, r *http.Request) {
	log, err := s.aggregator.CompletedAssignments(r.Context(), r.PathValue("studentID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Assignment completions fetched successfully", log)
}

func (s *Server) handleAssignmentStatus(w http.ResponseWriter, r *http.Request) {
	rep, err := s.aggregator.AssignmentStatus(r.Context(), r.PathValue("studentID"), r.PathValue("assignmentID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Assignment status fetched successfully", rep)
}

func (s *Server) handleLectureReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.aggregator.LectureReport(r.Context(), r.PathValue("lectureID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Lecture report fetched successfully", rep)
}

func (s *Server) handleLectureReportXLSX(w http.ResponseWriter, r *http.Request) {
	rep, err := s.aggregator.LectureReport(r.Context(), r.PathValue("lectureID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(rep)+`"`)
	if err := report.WriteLectureXLSX(w, rep); err != nil {
		// Headers are already out; all we can do is drop the connection.
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleUpdateWatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, updateWatchSchema)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		StudentID   string `json:"studentId"`
		LectureID   string `json:"lectureId"`
		WatchedTime int    `json:"watchedTime"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	rec, err := s.tracker.UpdateProgress(r.Context(), req.StudentID, req.LectureID, req.WatchedTime)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Watch progress updated successfully", rec)
}

func (s *Server) handleWatchProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.tracker.GetProgress(r.Context(), r.PathValue("studentID"), r.PathValue("lectureID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Watch progress fetched successfully", progress)
}

func (s *Server) handleWatchHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.tracker.StudentHistory(r.Context(), r.PathValue("studentID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Watch history fetched successfully", history)
}

func (s *Server) handleRecentlyWatched(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.tracker.RecentlyWatched(r.Context(), r.PathValue("studentID"), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Recently watched lectures fetched successfully", entries)
}

func (s *Server) handleDeleteWatch(w http.ResponseWriter, r *http.Request) {
	err := s.tracker.DeleteProgress(r.Context(), r.PathValue("studentID"), r.PathValue("lectureID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Watch progress deleted successfully", nil)
}
