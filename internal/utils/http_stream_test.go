package utils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ---- SSEScanner ------------------------------------------------------------

func collectPayloads(t *testing.T, input string) []string {
	t.Helper()
	scanner := NewSSEScanner(strings.NewReader(input))
	var payloads []string
	for {
		payload, err := scanner.Next()
		if err == io.EOF {
			return payloads
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		payloads = append(payloads, payload)
	}
}

func TestSSEScanner_Payloads(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single event", "data: hello\n\n", []string{"hello"}},
		{"ordered events", "data: first\n\ndata: second\n\n", []string{"first", "second"}},
		{"multi-line data", "data: a\ndata: b\n\n", []string{"a\nb"}},
		{"comments and fields skipped", ": ping\nevent: delta\nid: 7\ndata: x\n\n", []string{"x"}},
		{"done sentinel stops", "data: one\n\ndata: [DONE]\n\ndata: ignored\n\n", []string{"one"}},
		{"trailing event without blank line", "data: tail", []string{"tail"}},
		{"no prefix space", "data:{\"a\":1}\n\n", []string{`{"a":1}`}},
		{"empty input", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collectPayloads(t, tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d payloads %q, want %q", len(got), got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("payload %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSSEScanner_LineTooLong(t *testing.T) {
	input := "data: " + strings.Repeat("x", maxSSELineSize+1) + "\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	_, err := scanner.Next()
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("expected bufio.ErrTooLong, got %v", err)
	}
}

// ---- DoPostStream ----------------------------------------------------------

func TestDoPostStream_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: 我的词\n\ndata: [DONE]\n\n")
	}))
	defer server.Close()

	response, err := DoPostStream(context.Background(), server.Client(), server.URL, "key", map[string]bool{"stream": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer CloseWithLog(response.Body)

	scanner := NewSSEScanner(response.Body)
	payload, err := scanner.Next()
	if err != nil || payload != "我的词" {
		t.Fatalf("Next() = %q, %v", payload, err)
	}
	if _, err := scanner.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDoPostStream_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"bad key"}`)
	}))
	defer server.Close()

	_, err := DoPostStream(context.Background(), server.Client(), server.URL, "key", struct{}{})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || !strings.Contains(statusErr.Body, "bad key") {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestDoPostStream_CustomHeaderOverridesAccept(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/x-ndjson" {
			t.Errorf("Accept = %q", got)
		}
	}))
	defer server.Close()

	response, err := DoPostStream(context.Background(), server.Client(), server.URL, "", struct{}{},
		HeaderOption{Key: "Accept", Value: "application/x-ndjson"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	CloseWithLog(response.Body)
}
