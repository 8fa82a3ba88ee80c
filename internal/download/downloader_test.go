package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gocloud.dev/blob/memblob"

	"github.com/vixalie/interactive-model-downloader/internal/httpclient"
	"github.com/vixalie/interactive-model-downloader/internal/retry"
)

// recordingObserver captures progress callbacks for assertions.
type recordingObserver struct {
	total    int64
	updates  []int64
	finished int
}

func (r *recordingObserver) Begin(total int64)        { r.total = total }
func (r *recordingObserver) Update(transferred int64) { r.updates = append(r.updates, transferred) }
func (r *recordingObserver) Finish()                  { r.finished++ }

func TestDownloadStreamsToDestination(t *testing.T) {
	content := bytes.Repeat([]byte("model-bytes-"), 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(content)))
		w.Write(content)
	}))
	defer server.Close()

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	observer := &recordingObserver{}
	client := httpclient.NewClient(httpclient.Options{})

	written, err := Download(context.Background(), client, server.URL, bucket, "model.safetensors", Options{
		Observer: observer,
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if written != int64(len(content)) {
		t.Errorf("written = %d, want %d", written, len(content))
	}

	stored, err := bucket.ReadAll(context.Background(), "model.safetensors")
	if err != nil {
		t.Fatalf("reading stored object: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Errorf("stored %d bytes differ from source", len(stored))
	}

	if observer.total != int64(len(content)) {
		t.Errorf("observer total = %d, want %d", observer.total, len(content))
	}
	if len(observer.updates) == 0 {
		t.Fatal("observer received no updates")
	}
	last := observer.updates[len(observer.updates)-1]
	if last != int64(len(content)) {
		t.Errorf("final update = %d, want %d", last, len(content))
	}
	for i := 1; i < len(observer.updates); i++ {
		if observer.updates[i] < observer.updates[i-1] {
			t.Fatalf("updates not monotonic: %d after %d",
				observer.updates[i], observer.updates[i-1])
		}
	}
}

func TestDownloadMissingContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the body completes forces chunked encoding
		// with no Content-Length header.
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		w.Write([]byte("some bytes"))
	}))
	defer server.Close()

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	client := httpclient.NewClient(httpclient.Options{})
	_, err := Download(context.Background(), client, server.URL, bucket, "file", Options{})
	if !errors.Is(err, ErrMissingLength) {
		t.Fatalf("Download() error = %v, want ErrMissingLength", err)
	}
	if !retry.IsPermanent(err) {
		t.Error("missing content length should not be retried")
	}
}

func TestDownloadServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	client := httpclient.NewClient(httpclient.Options{})
	_, err := Download(context.Background(), client, server.URL, bucket, "file", Options{})
	if !errors.Is(err, httpclient.ErrServerError) {
		t.Fatalf("Download() error = %v, want ErrServerError", err)
	}
	if retry.IsPermanent(err) {
		t.Error("server errors must stay retryable")
	}
}

func TestDownloadNotFoundIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	client := httpclient.NewClient(httpclient.Options{})
	_, err := Download(context.Background(), client, server.URL, bucket, "file", Options{})
	if !errors.Is(err, httpclient.ErrNotFound) {
		t.Fatalf("Download() error = %v, want ErrNotFound", err)
	}
	if !retry.IsPermanent(err) {
		t.Error("404 should abort the retry budget")
	}
}

func TestDownloadUnsupportedSchemeAbortsRetries(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	client := httpclient.NewClient(httpclient.Options{})
	policy := retry.Policy{
		InitialInterval: time.Millisecond,
		Multiplier:      1.5,
		MaxAttempts:     3,
		AttemptTimeout:  time.Second,
	}

	attempts := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		_, err := Download(ctx, client, "htp://not-a-real-scheme/file", bucket, "file", Options{})
		return err
	})
	if err == nil {
		t.Fatal("Do() error = nil, want unsupported scheme failure")
	}
	if errors.Is(err, retry.ErrBudgetExhausted) {
		t.Error("malformed URL reported as budget exhaustion")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for a malformed URL", attempts)
	}
}

func TestDownloadTruncatedStreamLeavesNoObject(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 64*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare more than will be sent, then drop the connection.
		w.Header().Set("Content-Length", fmt.Sprint(len(content)*2))
		w.Write(content)
		w.(http.Flusher).Flush()
		conn, _, _ := w.(http.Hijacker).Hijack()
		conn.Close()
	}))
	defer server.Close()

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	client := httpclient.NewClient(httpclient.Options{})
	_, err := Download(context.Background(), client, server.URL, bucket, "file", Options{})
	if err == nil {
		t.Fatal("Download() error = nil, want mid-stream failure")
	}
	if retry.IsPermanent(err) {
		t.Errorf("truncated stream error = %v, should stay retryable", err)
	}

	// The aborted attempt must not have committed a partial object.
	exists, existsErr := bucket.Exists(context.Background(), "file")
	if existsErr != nil {
		t.Fatalf("Exists() error = %v", existsErr)
	}
	if exists {
		t.Error("partial object committed after failed attempt")
	}
}
