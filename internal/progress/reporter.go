package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// Label identifies the transfer in the output, usually the file
	// name being downloaded.
	Label string

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to repaint the progress line.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Reporter outputs human-readable progress for one transfer. It
// observes a monotonically increasing byte counter against a total
// declared at Begin time.
type Reporter struct {
	opts Options

	total       atomic.Int64
	transferred atomic.Int64

	mu         sync.Mutex
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	stopCh     chan struct{}
	running    bool
}

// NewReporter creates a progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}
	return &Reporter{opts: opts}
}

// Begin records the total transfer size, prints the header, and starts
// the repaint loop. A reporter is reused across retry attempts: Begin
// resets the counters left by a failed attempt.
func (r *Reporter) Begin(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total.Store(total)
	r.transferred.Store(0)
	r.startTime = time.Now()
	r.lastUpdate = r.startTime
	r.lastBytes = 0

	fmt.Fprintf(r.opts.Output, "[imd] Downloading %s (%s)\n", r.opts.Label, FormatBytes(total))

	if !r.running {
		r.running = true
		r.stopCh = make(chan struct{})
		go r.updateLoop(r.stopCh)
	}
}

// Update sets the absolute number of bytes transferred so far. The
// counter only moves forward: a value smaller than the current one is
// ignored.
func (r *Reporter) Update(transferred int64) {
	for {
		current := r.transferred.Load()
		if transferred <= current {
			return
		}
		if r.transferred.CompareAndSwap(current, transferred) {
			return
		}
	}
}

// Finish stops the repaint loop and prints the final status line.
// Safe to call multiple times.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.running = false
	close(r.stopCh)

	duration := time.Since(r.startTime)
	transferred := r.transferred.Load()
	avgSpeed := float64(transferred)
	if duration > 0 {
		avgSpeed = float64(transferred) / duration.Seconds()
	}
	fmt.Fprintf(r.opts.Output, "\r[imd] %s: %s in %s (%s/s)          \n",
		r.opts.Label,
		FormatBytes(transferred),
		formatDuration(duration),
		FormatBytes(int64(avgSpeed)),
	)
}

// updateLoop periodically repaints the progress line.
func (r *Reporter) updateLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress repaints the current progress line.
func (r *Reporter) printProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	transferred := r.transferred.Load()
	total := r.total.Load()

	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(transferred-r.lastBytes) / elapsed
	r.lastUpdate = now
	r.lastBytes = transferred

	var percent float64
	eta := "calculating..."
	if total > 0 {
		percent = float64(transferred) / float64(total) * 100
		if speed > 0 {
			remaining := float64(total-transferred) / speed
			eta = formatDuration(time.Duration(remaining * float64(time.Second)))
		}
	}

	fmt.Fprintf(r.opts.Output, "\r[imd] %s: %.1f%% | %s / %s | %s/s | ETA: %s    ",
		r.opts.Label,
		percent,
		FormatBytes(transferred),
		FormatBytes(total),
		FormatBytes(int64(speed)),
		eta,
	)
}

// FormatBytes formats a byte count as a human-readable string.
func FormatBytes(b int64) string {
	const (
		KiB = 1024
		MiB = KiB * 1024
		GiB = MiB * 1024
		TiB = GiB * 1024
	)

	switch {
	case b >= TiB:
		return fmt.Sprintf("%.2f TiB", float64(b)/float64(TiB))
	case b >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(GiB))
	case b >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(MiB))
	case b >= KiB:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(KiB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
