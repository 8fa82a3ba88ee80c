package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(Options{Token: "secret-token"})
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret-token")
	}
}

func TestGetOmitsAuthorizationWithoutToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(Options{})
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestGetContentLength(t *testing.T) {
	payload := []byte("0123456789")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	client := NewClient(Options{})
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength != int64(len(payload)) {
		t.Errorf("ContentLength = %d, want %d", resp.ContentLength, len(payload))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != string(payload) {
		t.Errorf("body = %q, want %q", body, payload)
	}
}

func TestGetStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
		{http.StatusConflict, ErrBadRequest},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		client := NewClient(Options{})
		_, err := client.Get(context.Background(), server.URL)
		server.Close()

		if !errors.Is(err, tt.sentinel) {
			t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.sentinel)
		}
	}
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("Accept = %q, want application/json", accept)
		}
		w.Write([]byte(`{"id": 42, "name": "test"}`))
	}))
	defer server.Close()

	var payload struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	client := NewClient(Options{})
	if err := client.GetJSON(context.Background(), server.URL, &payload); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if payload.ID != 42 || payload.Name != "test" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrServerError, true},
		{ErrRateLimited, true},
		{ErrNotFound, false},
		{ErrForbidden, false},
		{ErrUnauthorized, false},
		{ErrBadRequest, false},
		{io.ErrUnexpectedEOF, true},
		{net.ErrClosed, true},
		{errors.New("something else"), false},
	}

	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsTransientNetError(t *testing.T) {
	// Dial a closed port to get a real *net.OpError.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	client := NewClient(Options{ResponseHeaderTimeout: time.Second})
	_, err = client.Get(context.Background(), "http://"+addr+"/file")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !IsTransient(err) {
		t.Errorf("connection failure not classified transient: %v", err)
	}
}

func TestIsTransientMalformedURL(t *testing.T) {
	// http.Client wraps these in *url.Error, which satisfies
	// net.Error; they must still classify as fatal.
	urls := []string{
		"htp://not-a-real-scheme/file",
		"http://host with spaces/file",
	}
	client := NewClient(Options{})
	for _, rawURL := range urls {
		_, err := client.Get(context.Background(), rawURL)
		if err == nil {
			t.Fatalf("Get(%q) error = nil, want failure", rawURL)
		}
		if IsTransient(err) {
			t.Errorf("IsTransient() = true for %q (%v), malformed URLs are fatal", rawURL, err)
		}
	}
}
