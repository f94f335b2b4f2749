// Package web exposes the HTTP API: health, latest submissions, single and
// batch processing, the structured-data export, search, and the form-submit
// webhook.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"evidence-bot/pipeline"
	"evidence-bot/record"
	"evidence-bot/search"
	"evidence-bot/submission"
)

const defaultLatestLimit = 10

// Processor runs the delivery pipeline for one extracted submission.
type Processor interface {
	ProcessSubmission(ctx context.Context, sub *submission.Submission, entryNumber int) *pipeline.RowResult
}

// RowSource lists all rows of the tabular source, header row first.
type RowSource interface {
	ListRows(ctx context.Context) ([][]string, error)
}

// Searcher queries the record index.
type Searcher interface {
	Search(query string, limit int) ([]*search.Hit, error)
}

// Server is the HTTP API server.
type Server struct {
	processor Processor
	source    RowSource
	store     *record.Store
	searcher  Searcher
	router    *chi.Mux
}

// NewServer creates the API server. searcher may be nil, in which case the
// search endpoint reports unavailable.
func NewServer(processor Processor, source RowSource, store *record.Store, searcher Searcher) *Server {
	s := &Server{
		processor: processor,
		source:    source,
		store:     store,
		searcher:  searcher,
		router:    chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/submissions/latest", s.handleLatest)
	s.router.Post("/api/submissions/process", s.handleProcess)
	s.router.Post("/api/submissions/batch-process", s.handleBatchProcess)
	s.router.Get("/api/data/structured", s.handleStructuredData)
	s.router.Get("/api/search", s.handleSearch)
	s.router.Post("/api/webhook/form-submit", s.handleFormSubmit)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"records":   s.store.Len(),
	})
}

// latestSubmission is the API shape of one extracted row.
type latestSubmission struct {
	RowNumber  int      `json:"row_number"`
	Timestamp  string   `json:"timestamp"`
	Submitter  string   `json:"submitter"`
	Title      string   `json:"title"`
	AffTags    []string `json:"aff_tags"`
	NegTags    []string `json:"neg_tags"`
	SourceURL  string   `json:"source_url"`
	UpdateDate string   `json:"update_date"`
	EngSource  string   `json:"eng_source"`
	Quote      string   `json:"quote"`
	Attachment string   `json:"attachment"`
	Remark     string   `json:"remark"`
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultLatestLimit)

	subs, err := s.latestSubmissions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"count":       len(subs),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}

// latestSubmissions extracts the last limit data rows. Rows that fail
// extraction are omitted, mirroring the permissive read path.
func (s *Server) latestSubmissions(ctx context.Context, limit int) ([]latestSubmission, error) {
	numbered, err := pipeline.LatestSubmissions(ctx, s.source, limit)
	if err != nil {
		return nil, err
	}

	subs := make([]latestSubmission, 0, len(numbered))
	for _, ns := range numbered {
		subs = append(subs, toLatestSubmission(ns.Submission, ns.RowNumber))
	}
	return subs, nil
}

func toLatestSubmission(sub *submission.Submission, rowNumber int) latestSubmission {
	return latestSubmission{
		RowNumber:  rowNumber,
		Timestamp:  sub.Timestamp,
		Submitter:  sub.Submitter,
		Title:      sub.Title,
		AffTags:    sub.AffTags,
		NegTags:    sub.NegTags,
		SourceURL:  sub.SourceURL,
		UpdateDate: sub.UpdateDate,
		EngSource:  sub.EngSource,
		Quote:      sub.Quote,
		Attachment: sub.Attachment,
		Remark:     sub.Remark,
	}
}

type processRequest struct {
	Row         []string `json:"row"`
	EntryNumber int      `json:"entry_number"`
}

// processResponse is the structured per-submission result.
type processResponse struct {
	Success     bool   `json:"success"`
	EntryNumber int    `json:"entry_number"`
	DocsAdded   bool   `json:"docs_added"`
	DiscordSent bool   `json:"discord_sent"`
	RecordID    string `json:"record_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.EntryNumber < 1 {
		req.EntryNumber = 1
	}

	sub, extractErr := submission.Extract(req.Row)
	if extractErr != nil {
		writeJSON(w, http.StatusBadRequest, processResponse{
			Success:     false,
			EntryNumber: req.EntryNumber,
			Error:       extractErr.Error(),
		})
		return
	}

	result := s.processor.ProcessSubmission(r.Context(), sub, req.EntryNumber)
	writeJSON(w, http.StatusOK, toProcessResponse(result))
}

func (s *Server) handleBatchProcess(w http.ResponseWriter, r *http.Request) {
	subs, err := s.latestSubmissions(r.Context(), defaultLatestLimit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	results := make([]processResponse, 0, len(subs))
	for _, ls := range subs {
		sub, extractErr := submission.Extract(rowFromLatest(ls))
		if extractErr != nil {
			continue
		}
		result := s.processor.ProcessSubmission(r.Context(), sub, ls.RowNumber-1)
		results = append(results, toProcessResponse(result))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"processed": len(results),
		"results":   results,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleStructuredData(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"structured_data": snapshot,
		"count":           len(snapshot),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		writeError(w, http.StatusServiceUnavailable, errSearchUnavailable)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, errMissingQuery)
		return
	}
	limit := queryInt(r, "limit", defaultLatestLimit)

	hits, err := s.searcher.Search(query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": hits,
		"count":   len(hits),
		"query":   query,
	})
}

// formSubmitPayload is the Google Forms webhook body. Field names follow the
// form's question labels.
type formSubmitPayload struct {
	NamedValues map[string][]string `json:"namedValues"`
	EntryNumber int                 `json:"entry_number"`
}

// formFieldOrder maps form question labels to row positions.
var formFieldOrder = []string{
	"タイムスタンプ",
	"名前",
	"title",
	"AFF tags",
	"NEG tags",
	"URL of the Quotation",
	"The source, Update date, and Time(引用元・更新日時)",
	"Eng Source",
	"Quoted text(引用本文)",
	"Attachments(添付ファイル)",
	"Remarks(備考)",
}

func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	var payload formSubmitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.NamedValues == nil {
		writeError(w, http.StatusBadRequest, errMissingNamedValues)
		return
	}

	row := make([]string, len(formFieldOrder))
	for i, field := range formFieldOrder {
		if values := payload.NamedValues[field]; len(values) > 0 {
			row[i] = values[0]
		}
	}

	sub, extractErr := submission.Extract(row)
	if extractErr != nil {
		writeError(w, http.StatusBadRequest, extractErr)
		return
	}

	entryNumber := payload.EntryNumber
	if entryNumber < 1 {
		entryNumber = 1
	}

	result := s.processor.ProcessSubmission(r.Context(), sub, entryNumber)
	writeJSON(w, http.StatusOK, toProcessResponse(result))
}

var (
	errSearchUnavailable  = &apiError{"search index not configured"}
	errMissingQuery       = &apiError{"missing query parameter q"}
	errMissingNamedValues = &apiError{"invalid webhook data format"}
)

type apiError struct {
	msg string
}

func (e *apiError) Error() string {
	return e.msg
}

func toProcessResponse(result *pipeline.RowResult) processResponse {
	resp := processResponse{
		Success:     result.Success(),
		EntryNumber: result.EntryNumber,
		DocsAdded:   result.Document.OK(),
		DiscordSent: result.Notification.OK(),
	}
	if result.Record != nil {
		resp.RecordID = result.Record.ID
	}
	if result.ExtractErr != nil {
		resp.Error = result.ExtractErr.Error()
	}
	return resp
}

func rowFromLatest(ls latestSubmission) []string {
	return []string{
		ls.Timestamp, ls.Submitter, ls.Title,
		joinTags(ls.AffTags), joinTags(ls.NegTags),
		ls.SourceURL, ls.UpdateDate, ls.EngSource,
		ls.Quote, ls.Attachment, ls.Remark,
	}
}

func joinTags(tags []string) string {
	out := ""
	for i, tag := range tags {
		if i > 0 {
			out += ", "
		}
		out += tag
	}
	return out
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
