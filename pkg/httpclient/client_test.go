package httpclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/licita/pkg/httpclient"
)

func fastClient(url string) *httpclient.Client {
	return httpclient.New(url, nil, httpclient.WithBackoff(time.Millisecond, 5*time.Millisecond))
}

func TestDoJSONRetriesTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"retry"}`))
			return
		}
		if r.Header.Get(httpclient.CorrelationHeader) == "" {
			t.Errorf("missing correlation header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	var out struct {
		Status string `json:"status"`
	}
	if err := fastClient(server.URL).DoJSON(context.Background(), http.MethodGet, "/ping", nil, nil, &out); err != nil {
		t.Fatalf("DoJSON failed: %v", err)
	}
	if out.Status != "ok" {
		t.Errorf("status: got %q, want ok", out.Status)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls: got %d, want 2", got)
	}
}

func TestDoJSONClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"workspace not found"}`))
	}))
	defer server.Close()

	err := fastClient(server.URL).DoJSON(context.Background(), http.MethodGet, "/x", nil, nil, nil)

	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", httpErr.StatusCode)
	}
	if httpErr.Message != "workspace not found" {
		t.Errorf("message: got %q", httpErr.Message)
	}
	if httpclient.StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode helper: got %d", httpclient.StatusCode(err))
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls: got %d, want 1", got)
	}
}

func TestDoRetriesExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := httpclient.New(server.URL, nil,
		httpclient.WithRetries(2),
		httpclient.WithBackoff(time.Millisecond, time.Millisecond),
	)
	_, err := client.Do(context.Background(), httpclient.Request{Method: http.MethodGet, Path: "/"})

	if httpclient.StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("expected 502 HTTPError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls: got %d, want 3", got)
	}
}

func TestDoReplaysBody(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "payload" {
			t.Errorf("attempt body: got %q", body)
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("done"))
	}))
	defer server.Close()

	resp, err := fastClient(server.URL).Do(context.Background(), httpclient.Request{
		Method:      http.MethodPost,
		Path:        "/upload",
		Body:        []byte("payload"),
		ContentType: "text/plain",
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()

	got, _ := io.ReadAll(resp.Body)
	if string(got) != "done" {
		t.Errorf("body: got %q", got)
	}
}
