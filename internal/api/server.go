package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdfchat/internal/chat"
	"pdfchat/internal/config"
	"pdfchat/internal/models"
	"pdfchat/internal/providers"
	"pdfchat/internal/session"
	"pdfchat/internal/storage"
	"pdfchat/internal/util"
	"pdfchat/internal/vector"
	"pdfchat/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg       config.Config
	db        *storage.DB
	chunkRepo *storage.ChunkRepo
	sessions  *session.Store
	router    *chat.Router
	providers *providers.Manager
	temporal  tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(providers.ManagerConfig{
		LLMProviders:   cfg.LLMProviders,
		EmbedProviders: cfg.EmbedProviders,
		EmbedDim:       cfg.EmbedDim,
	})
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	searcher := vector.NewSearcher(db.Pool)
	return &Server{
		cfg:       cfg,
		db:        db,
		chunkRepo: storage.NewChunkRepo(db),
		sessions:  session.NewStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		router:    chat.NewRouter(pm, pm, searcher, cfg.EmbedDim, cfg.TopK),
		providers: pm,
		temporal:  tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/", s.handleSessionScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": sess.ID, "created_at": sess.CreatedAt})
}

func (s *Server) handleSessionScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	sess, ok := s.sessions.Get(parts[0])
	if !ok {
		writeErr(w, http.StatusNotFound, fmt.Errorf("session not found"))
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		resp := map[string]any{"session_id": sess.ID, "index_active": sess.IndexActive(), "created_at": sess.CreatedAt}
		if idx, ok := sess.Index(); ok {
			resp["index"] = idx
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "messages":
			if r.Method != http.MethodGet {
				writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"messages": sess.Messages()})
			return
		case "upload":
			if r.Method != http.MethodPost {
				writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
				return
			}
			s.handleUpload(w, r, sess)
			return
		case "ask":
			if r.Method != http.MethodPost {
				writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
				return
			}
			s.handleAsk(w, r, sess)
			return
		}
	}

	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

// handleUpload accepts exactly one PDF, stages it in a temp file that is
// removed on every exit path, and runs the ingest workflow to completion.
// Session state changes only after the workflow reports success; the prior
// index (if any) is reclaimed after the new handle is installed.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	var files []*multipart.FileHeader
	for _, headers := range r.MultipartForm.File {
		files = append(files, headers...)
	}
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	if len(files) > 1 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("exactly one file is required"))
		return
	}
	fh := files[0]
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("only PDF uploads are supported"))
		return
	}

	if err := util.EnsureDir(s.cfg.UploadRoot); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	tmpPath, err := stageUpload(s.cfg.UploadRoot, fh)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	indexID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    "ingest-" + sess.ID + "-" + indexID[:8],
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, workflows.DocumentIngestWorkflow, workflows.DocumentIngestInput{
		IndexID:      indexID,
		SessionID:    sess.ID,
		DocumentPath: tmpPath,
		Filename:     filepath.Base(fh.Filename),
		ChunkSize:    s.cfg.ChunkSize,
		ChunkOverlap: s.cfg.ChunkOverlap,
		EmbedVersion: s.cfg.EmbedVersion,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	var out workflows.DocumentIngestOutput
	if err := we.Get(r.Context(), &out); err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("ingest workflow: %w", err))
		return
	}
	if out.Status != workflows.StatusIndexed {
		writeErr(w, ingestFailStatus(out.FailKind), fmt.Errorf("ingest failed: %s", out.FailReason))
		return
	}

	handle := models.IndexHandle{
		IndexID:    out.IndexID,
		Filename:   filepath.Base(fh.Filename),
		ChunkCount: out.ChunkCount,
		PageCount:  out.PageCount,
		CreatedAt:  time.Now().UTC(),
	}
	prev, replaced := sess.SetIndex(handle)
	if replaced {
		// Replace semantics: the old index's rows are no longer reachable.
		if err := s.chunkRepo.DeleteIndex(r.Context(), prev.IndexID); err != nil {
			log.Printf("reclaim replaced index %s: %v", prev.IndexID, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"index_id":    handle.IndexID,
		"filename":    handle.Filename,
		"chunk_count": handle.ChunkCount,
		"page_count":  handle.PageCount,
		"replaced":    replaced,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	ans, err := s.router.Answer(r.Context(), sess, req.Question)
	if err != nil {
		writeErr(w, answerFailStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":          ans.Text,
		"mode":            ans.Mode,
		"retrieved_count": ans.RetrievedCount,
	})
}

// stageUpload copies the uploaded bytes into a temp file under root. The
// caller removes the file when ingestion finishes, success or not.
func stageUpload(root string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(root, "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

func ingestFailStatus(kind string) int {
	switch kind {
	case workflows.FailUnreadableDocument:
		return http.StatusUnprocessableEntity
	case workflows.FailEmbeddingUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func answerFailStatus(err error) int {
	switch {
	case errors.Is(err, util.ErrProviderUnavailable), errors.Is(err, util.ErrEmbeddingUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, util.ErrStoreQuery):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
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
	code := "PC-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500 && status != http.StatusBadGateway:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "PC-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "PC-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "PC-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "PC-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "PC-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusMethodNotAllowed:
		code = "PC-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusConflict:
		code = "PC-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusUnprocessableEntity:
		code = "PC-ING-4022"
		msg = "The uploaded document could not be read. Upload a text-based PDF."
	case status == http.StatusBadGateway:
		code = "PC-API-5020"
		msg = "Upstream provider unavailable. Retry shortly."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "question is required"):
			msg = "A question is required."
		case strings.Contains(low, "no files provided"):
			msg = "No PDF file was provided."
		case strings.Contains(low, "exactly one file"):
			msg = "Upload exactly one PDF file."
		case strings.Contains(low, "only pdf uploads"):
			msg = "Only PDF uploads are supported."
		case strings.Contains(low, "session not found"):
			msg = "Session not found or expired. Create a new session."
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
