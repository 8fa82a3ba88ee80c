package download

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gocloud.dev/blob"

	"github.com/vixalie/interactive-model-downloader/internal/hashing"
	"github.com/vixalie/interactive-model-downloader/internal/httpclient"
	"github.com/vixalie/interactive-model-downloader/internal/retry"
)

// ErrMissingLength is returned when the server does not declare a
// content length. Progress cannot be rendered meaningfully without a
// total, and the catalog's file hosts always declare one, so this is
// treated as a fatal negotiation failure rather than degrading to
// indeterminate progress.
var ErrMissingLength = errors.New("download: server did not declare a content length")

// Observer receives progress for one transfer. Begin is called once
// the total size is known, Update with the absolute byte count as the
// stream advances, and Finish when the orchestrated operation ends
// (whether or not it succeeded).
type Observer interface {
	Begin(total int64)
	Update(transferred int64)
	Finish()
}

// Options configures a single streaming download.
type Options struct {
	// Observer receives progress callbacks. Optional.
	Observer Observer

	// BufferSize is the copy buffer size.
	// Default: 512 KiB
	BufferSize int
}

// Download issues one authenticated GET for url and streams the body
// into the bucket under key, reporting progress as bytes arrive. The
// byte counter is monotonic and clamped to the server-declared length.
//
// Errors are pre-classified for the retry policy: transient network
// failures are returned as-is, while negotiation failures and
// destination write errors come back wrapped with retry.Permanent (a
// broken disk does not heal on retry).
//
// A failed attempt never leaves a partial object under key: the bucket
// write only commits on a clean close, so a later attempt starts from
// byte zero against an absent or previous object, never appending.
func Download(ctx context.Context, client *httpclient.Client, url string, bucket *blob.Bucket, key string, opts Options) (int64, error) {
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = hashing.ReadChunkSize
	}

	resp, err := client.Get(ctx, url)
	if err != nil {
		if httpclient.IsTransient(err) {
			return 0, err
		}
		return 0, retry.Permanent(err)
	}
	defer resp.Body.Close()

	total := resp.ContentLength
	if total < 0 {
		return 0, retry.Permanent(fmt.Errorf("%w: %s", ErrMissingLength, url))
	}
	if opts.Observer != nil {
		opts.Observer.Begin(total)
	}

	// The writer commits on Close; cancelling its context first
	// abandons the write instead.
	writeCtx, abandon := context.WithCancel(ctx)
	defer abandon()

	w, err := bucket.NewWriter(writeCtx, key, nil)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("open destination %s: %w", key, err))
	}

	buf := make([]byte, bufferSize)
	var written int64
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				abandon()
				w.Close()
				return written, retry.Permanent(fmt.Errorf("write %s: %w", key, writeErr))
			}
			written += int64(n)
			if opts.Observer != nil {
				reported := written
				if reported > total {
					reported = total
				}
				opts.Observer.Update(reported)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			abandon()
			w.Close()
			// A stream that dies mid-body is a network failure and
			// stays retryable.
			return written, fmt.Errorf("stream %s: %w", url, readErr)
		}
	}

	if err := w.Close(); err != nil {
		return written, retry.Permanent(fmt.Errorf("commit %s: %w", key, err))
	}
	return written, nil
}
