package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bookvoice/internal/config"
	"bookvoice/internal/models"
	"bookvoice/internal/storage"
	"bookvoice/internal/util"
	"bookvoice/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg         config.Config
	db          *storage.DB
	chapterRepo *storage.ChapterRepo
	resultRepo  *storage.ResultRepo
	temporal    tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	return &Server{
		cfg:         cfg,
		db:          db,
		chapterRepo: storage.NewChapterRepo(db),
		resultRepo:  storage.NewResultRepo(db),
		temporal:    tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/chapters", s.handleChapters)
	mux.HandleFunc("/chapters/", s.handleChaptersScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		chapters, err := s.chapterRepo.ListChapters(r.Context(), r.URL.Query().Get("book_id"))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"chapters": chapters})
	case http.MethodPost:
		var req struct {
			BookID string `json:"book_id"`
			Title  string `json:"title"`
			Text   string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.Text = util.SanitizeText(req.Text)
		if strings.TrimSpace(req.Text) == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("text is required"))
			return
		}

		chapterID := uuid.NewString()
		chapter := models.Chapter{
			ChapterID: chapterID,
			BookID:    strings.TrimSpace(req.BookID),
			Title:     strings.TrimSpace(req.Title),
			Text:      req.Text,
			Status:    "pending",
		}
		if err := s.chapterRepo.UpsertChapter(r.Context(), chapter); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}

		we, err := s.startAnalysis(r.Context(), chapterID)
		if err != nil {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"chapter_id":  chapterID,
			"workflow_id": we.GetID(),
			"run_id":      we.GetRunID(),
		})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleChaptersScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/chapters/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	chapterID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleChapterStatus(w, r, chapterID)
		return
	}
	if len(parts) == 2 && parts[1] == "result" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		res, err := s.resultRepo.GetResult(r.Context(), chapterID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if res == nil {
			writeErr(w, http.StatusNotFound, fmt.Errorf("result not ready"))
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	if len(parts) == 2 && parts[1] == "analyze" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		chapter, err := s.chapterRepo.GetChapter(r.Context(), chapterID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if chapter == nil {
			writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
			return
		}
		we, err := s.startAnalysis(r.Context(), chapterID)
		if err != nil {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"chapter_id":  chapterID,
			"workflow_id": we.GetID(),
			"run_id":      we.GetRunID(),
		})
		return
	}

	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handleChapterStatus(w http.ResponseWriter, r *http.Request, chapterID string) {
	chapter, err := s.chapterRepo.GetChapter(r.Context(), chapterID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if chapter == nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	chapter.Text = util.DisplaySnippet(chapter.Text, 200)

	out := map[string]any{"chapter": chapter}
	// Live progress when a workflow is running; the stored status carries it
	// otherwise.
	resp, qErr := s.temporal.QueryWorkflow(r.Context(), "chapter-"+chapterID, "", workflows.QueryGetChapterStatus)
	if qErr == nil {
		var status workflows.ChapterStatus
		if err := resp.Get(&status); err == nil {
			out["progress"] = status
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) startAnalysis(ctx context.Context, chapterID string) (tclient.WorkflowRun, error) {
	return s.temporal.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       "chapter-" + chapterID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.ChapterAnalyzeWorkflow, workflows.ChapterAnalyzeInput{ChapterID: chapterID})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "BV-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "BV-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "BV-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "BV-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "BV-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "BV-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "BV-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "BV-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "text is required"):
			msg = "Chapter text is required."
		case strings.Contains(low, "result not ready"):
			msg = "Analysis has not finished for this chapter."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
