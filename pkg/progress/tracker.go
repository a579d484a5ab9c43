package progress

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const tickInterval = 250 * time.Millisecond

// Tracker reports throughput for a single operation. A nil *Tracker is
// valid and discards everything, so callers never need to check.
type Tracker struct {
	out       io.Writer
	total     uint64
	processed atomic.Uint64
	done      chan struct{}
	finished  chan struct{}
	start     sync.Once
	stop      sync.Once
}

// New returns a tracker writing to out, or nil when out is nil.
// total is the expected byte count; 0 means unknown.
func New(out io.Writer, total uint64) *Tracker {
	if out == nil {
		return nil
	}
	return &Tracker{
		out:      out,
		total:    total,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Start launches the reporting goroutine.
func (t *Tracker) Start() {
	if t == nil {
		return
	}
	t.start.Do(func() { go t.logger() })
}

// Stop ends reporting and waits for the final summary line.
func (t *Tracker) Stop() {
	if t == nil {
		return
	}
	t.stop.Do(func() {
		t.Start()
		close(t.done)
		<-t.finished
	})
}

// Add records n processed bytes.
func (t *Tracker) Add(n uint64) {
	if t == nil || n == 0 {
		return
	}
	t.processed.Add(n)
}

// Processed returns the bytes recorded so far.
func (t *Tracker) Processed() uint64 {
	if t == nil {
		return 0
	}
	return t.processed.Load()
}

// formatSize returns a human-readable size string
func formatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatRate returns a human-readable rate string
func formatRate(bytesPerSec uint64) string {
	return formatSize(bytesPerSec) + "/s"
}

// logger logs processing progress periodically
func (t *Tracker) logger() {
	defer close(t.finished)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	var prevBytes uint64
	var prevPercentage float64
	startTime := time.Now()
	lastOutputTime := time.Now()

	fmt.Fprintf(t.out, "Starting processing...\n")

	for {
		select {
		case <-ticker.C:
			currentBytes := t.processed.Load()
			rate := (currentBytes - prevBytes) * uint64(time.Second/tickInterval)
			prevBytes = currentBytes

			if t.total == 0 {
				if time.Since(lastOutputTime) >= time.Second {
					lastOutputTime = time.Now()
					fmt.Fprintf(t.out, "Processed %s | Rate: %s\n", formatSize(currentBytes), formatRate(rate))
				}
				continue
			}

			currentPercentage := float64(currentBytes) / float64(t.total) * 100
			// Only show updates every second or for significant percentage changes
			if time.Since(lastOutputTime) >= time.Second || currentPercentage-prevPercentage >= 10 ||
				(currentPercentage >= 100 && prevPercentage < 100) {

				lastOutputTime = time.Now()
				fmt.Fprintf(t.out, "Processed %s of %s (%.1f%%) | Rate: %s | ETA: %s\n",
					formatSize(currentBytes), formatSize(t.total),
					currentPercentage, formatRate(rate), eta(t.total, currentBytes, rate))
				prevPercentage = currentPercentage
			}
		case <-t.done:
			totalTime := max(time.Since(startTime).Seconds(), 0.001)
			processed := t.processed.Load()
			fmt.Fprintf(t.out, "Completed processing %s in %.1f seconds (avg rate: %s)\n",
				formatSize(processed), totalTime, formatRate(uint64(float64(processed)/totalTime)))
			return
		}
	}
}

func eta(total, current, rate uint64) string {
	if rate == 0 || current >= total {
		return "calculating..."
	}
	secondsRemaining := float64(total-current) / float64(rate)
	switch {
	case secondsRemaining < 60:
		return fmt.Sprintf("%.0f seconds", secondsRemaining)
	case secondsRemaining < 3600:
		return fmt.Sprintf("%.1f minutes", secondsRemaining/60)
	default:
		return fmt.Sprintf("%.1f hours", secondsRemaining/3600)
	}
}

// Reader tracks bytes read from R.
type Reader struct {
	R io.Reader
	T *Tracker
}

func (pr *Reader) Read(p []byte) (n int, err error) {
	n, err = pr.R.Read(p)
	if n > 0 {
		pr.T.Add(uint64(n))
	}
	return
}
