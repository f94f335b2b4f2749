package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"evidence-bot/pipeline"
	"evidence-bot/record"
	"evidence-bot/search"
	"evidence-bot/submission"
)

type mockProcessor struct {
	calls []int
	fail  bool
}

func (m *mockProcessor) ProcessSubmission(_ context.Context, sub *submission.Submission, entryNumber int) *pipeline.RowResult {
	m.calls = append(m.calls, entryNumber)
	result := &pipeline.RowResult{EntryNumber: entryNumber}
	if m.fail {
		result.Document = pipeline.SinkOutcome{Attempted: true, Err: errors.New("docs down")}
		result.Notification = pipeline.SinkOutcome{Attempted: true}
	} else {
		result.Document = pipeline.SinkOutcome{Attempted: true}
		result.Notification = pipeline.SinkOutcome{Attempted: true}
		result.Record = &record.StructuredRecord{ID: "entry_1"}
	}
	return result
}

type mockRowSource struct {
	rows [][]string
	err  error
}

func (m *mockRowSource) ListRows(context.Context) ([][]string, error) {
	return m.rows, m.err
}

type mockSearcher struct {
	hits []*search.Hit
	err  error
}

func (m *mockSearcher) Search(string, int) ([]*search.Hit, error) {
	return m.hits, m.err
}

var testRow = []string{
	"2024-01-01", "Alice", "Title1", "t1, t2", "",
	"http://x", "2024-01-01", "Src", "原文", "", "備考",
}

var testHeader = []string{
	"タイムスタンプ", "名前", "title", "AFF tags", "NEG tags",
	"URL", "Update date", "Eng Source", "Quoted text", "Attachments", "Remarks",
}

func newTestServer(processor Processor, source RowSource, searcher Searcher) *Server {
	return NewServer(processor, source, record.NewStore(), searcher)
}

func doRequest(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reqBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(&mockProcessor{}, &mockRowSource{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "healthy" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestLatest(t *testing.T) {
	source := &mockRowSource{rows: [][]string{testHeader, testRow}}
	s := newTestServer(&mockProcessor{}, source, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/submissions/latest", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Submissions []latestSubmission `json:"submissions"`
		Count       int                `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 1 {
		t.Fatalf("count = %d", body.Count)
	}
	if body.Submissions[0].Submitter != "Alice" || body.Submissions[0].RowNumber != 2 {
		t.Errorf("submission = %+v", body.Submissions[0])
	}
}

func TestLatestSourceError(t *testing.T) {
	source := &mockRowSource{err: errors.New("unreachable")}
	s := newTestServer(&mockProcessor{}, source, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/submissions/latest", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestProcess(t *testing.T) {
	processor := &mockProcessor{}
	s := newTestServer(processor, &mockRowSource{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/submissions/process",
		processRequest{Row: testRow, EntryNumber: 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d\nbody: %s", rec.Code, rec.Body.String())
	}

	var resp processResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || !resp.DocsAdded || !resp.DiscordSent {
		t.Errorf("response = %+v", resp)
	}
	if resp.RecordID != "entry_1" {
		t.Errorf("record id = %q", resp.RecordID)
	}
	if len(processor.calls) != 1 || processor.calls[0] != 5 {
		t.Errorf("processor calls = %v", processor.calls)
	}
}

func TestProcessMalformedRow(t *testing.T) {
	processor := &mockProcessor{}
	s := newTestServer(processor, &mockRowSource{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/submissions/process",
		processRequest{Row: []string{"too", "short"}, EntryNumber: 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(processor.calls) != 0 {
		t.Errorf("processor should not be called for malformed rows")
	}

	var resp processResponse
	decodeBody(t, rec, &resp)
	if resp.Success || resp.Error == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestProcessSinkFailure(t *testing.T) {
	processor := &mockProcessor{fail: true}
	s := newTestServer(processor, &mockRowSource{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/submissions/process",
		processRequest{Row: testRow, EntryNumber: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp processResponse
	decodeBody(t, rec, &resp)
	if resp.Success {
		t.Error("success should be false when a sink failed")
	}
	if resp.DocsAdded {
		t.Error("docs_added should be false")
	}
	if !resp.DiscordSent {
		t.Error("discord_sent should reflect the independent outcome")
	}
}

func TestBatchProcess(t *testing.T) {
	processor := &mockProcessor{}
	source := &mockRowSource{rows: [][]string{testHeader, testRow, testRow}}
	s := newTestServer(processor, source, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/submissions/batch-process", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Processed int               `json:"processed"`
		Results   []processResponse `json:"results"`
	}
	decodeBody(t, rec, &body)
	if body.Processed != 2 {
		t.Errorf("processed = %d, want 2", body.Processed)
	}
	// Entry numbers are row number minus one.
	if len(processor.calls) != 2 || processor.calls[0] != 1 || processor.calls[1] != 2 {
		t.Errorf("processor calls = %v", processor.calls)
	}
}

func TestStructuredData(t *testing.T) {
	store := record.NewStore()
	store.Append(&record.StructuredRecord{ID: "entry_1"})
	s := NewServer(&mockProcessor{}, &mockRowSource{}, store, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/data/structured", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		StructuredData []record.StructuredRecord `json:"structured_data"`
		Count          int                       `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 1 || body.StructuredData[0].ID != "entry_1" {
		t.Errorf("body = %+v", body)
	}
}

func TestSearch(t *testing.T) {
	searcher := &mockSearcher{hits: []*search.Hit{{ID: "entry_1", Score: 1.5}}}
	s := newTestServer(&mockProcessor{}, &mockRowSource{}, searcher)

	rec := doRequest(t, s, http.MethodGet, "/api/search?q=nuclear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Results []*search.Hit `json:"results"`
		Count   int           `json:"count"`
		Query   string        `json:"query"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 1 || body.Query != "nuclear" {
		t.Errorf("body = %+v", body)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	s := newTestServer(&mockProcessor{}, &mockRowSource{}, &mockSearcher{})

	rec := doRequest(t, s, http.MethodGet, "/api/search", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchUnavailable(t *testing.T) {
	s := newTestServer(&mockProcessor{}, &mockRowSource{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/search?q=x", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestFormSubmit(t *testing.T) {
	processor := &mockProcessor{}
	s := newTestServer(processor, &mockRowSource{}, nil)

	payload := formSubmitPayload{
		NamedValues: map[string][]string{
			"タイムスタンプ": {"2024-01-01"},
			"名前":      {"Alice"},
			"title":   {"Title1"},
			"AFF tags": {"t1, t2"},
			"NEG tags": {""},
			"URL of the Quotation": {"http://x"},
			"The source, Update date, and Time(引用元・更新日時)": {"2024-01-01"},
			"Eng Source":            {"Src"},
			"Quoted text(引用本文)":     {"原文"},
			"Attachments(添付ファイル)":   {""},
			"Remarks(備考)":           {"備考"},
		},
		EntryNumber: 3,
	}

	rec := doRequest(t, s, http.MethodPost, "/api/webhook/form-submit", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d\nbody: %s", rec.Code, rec.Body.String())
	}

	var resp processResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.EntryNumber != 3 {
		t.Errorf("response = %+v", resp)
	}
}

func TestFormSubmitMissingNamedValues(t *testing.T) {
	s := newTestServer(&mockProcessor{}, &mockRowSource{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/webhook/form-submit",
		map[string]any{"entry_number": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
