package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNotify(t *testing.T) {
	var captured webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewNotifier(server.URL)

	if err := notifier.Notify(context.Background(), "1. Title1 (Alice)"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if captured.Content != "1. Title1 (Alice)" {
		t.Errorf("content = %q", captured.Content)
	}
	if captured.TTS {
		t.Error("tts should be false")
	}
}

func TestNotifyNon204IsFailure(t *testing.T) {
	// Discord returns 204 on success; even a 200 means something is off.
	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusTooManyRequests, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		notifier := NewNotifier(server.URL)
		err := notifier.Notify(context.Background(), "msg")
		server.Close()

		if err == nil {
			t.Errorf("status %d: expected error", status)
		}
	}
}

func TestNotifyConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	notifier := NewNotifier(server.URL)
	if err := notifier.Notify(context.Background(), "msg"); err == nil {
		t.Fatal("expected error for unreachable webhook")
	}
}
