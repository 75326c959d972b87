// Package progress shows which configure step is running.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// IsTerminalFunc is the function used to check if a file descriptor is a terminal.
// It can be overridden for testing.
var IsTerminalFunc = term.IsTerminal

// spinnerFrames defines the animation characters for the spinner.
var spinnerFrames = []string{"|", "/", "-", "\\"}

// spinnerInterval is the time between spinner frame updates.
const spinnerInterval = 100 * time.Millisecond

const lineWidth = 80

// Steps reports one step at a time. On a terminal the running step animates
// a spinner and is replaced by its outcome; elsewhere each transition is
// printed on its own line so logs stay readable.
type Steps struct {
	mu      sync.Mutex
	output  io.Writer
	isTTY   bool
	step    string
	started time.Time
	done    chan struct{}
	wg      sync.WaitGroup
	now     func() time.Time
}

// NewSteps creates a reporter that writes to output. If output is nil,
// os.Stderr is used.
func NewSteps(output io.Writer) *Steps {
	if output == nil {
		output = os.Stderr
	}
	return &Steps{
		output: output,
		isTTY:  ShouldShowProgress(),
		now:    time.Now,
	}
}

// Start begins a step, finishing any step still running.
func (s *Steps) Start(step string) {
	s.finish("")

	s.mu.Lock()
	s.step = step
	s.started = s.now()
	if !s.isTTY {
		fmt.Fprintf(s.output, "%s...\n", step)
		s.mu.Unlock()
		return
	}
	done := make(chan struct{})
	s.done = done
	s.wg.Add(1)
	s.mu.Unlock()

	go s.animate(done, step)
}

// Done marks the running step as successful.
func (s *Steps) Done(detail string) {
	s.finish("ok " + detail)
}

// Fail marks the running step as failed.
func (s *Steps) Fail() {
	s.finish("failed")
}

func (s *Steps) finish(outcome string) {
	s.mu.Lock()
	if s.step == "" {
		s.mu.Unlock()
		return
	}
	step, elapsed := s.step, s.now().Sub(s.started)
	s.step = ""
	done := s.done
	s.done = nil
	s.mu.Unlock()

	if done != nil {
		close(done)
		s.wg.Wait()
	}
	if outcome == "" {
		if s.isTTY {
			fmt.Fprintf(s.output, "\r%s\r", strings.Repeat(" ", lineWidth))
		}
		return
	}

	line := fmt.Sprintf("%s: %s (%s)", step, strings.TrimSpace(outcome), formatDuration(elapsed))
	if s.isTTY {
		fmt.Fprintf(s.output, "\r%s\r%s\n", strings.Repeat(" ", lineWidth), line)
	} else {
		fmt.Fprintf(s.output, "%s\n", line)
	}
}

// animate runs the spinner animation loop until the step finishes.
func (s *Steps) animate(done <-chan struct{}, msg string) {
	defer s.wg.Done()

	frame := 0
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			line := fmt.Sprintf("\r%s %s", spinnerFrames[frame%len(spinnerFrames)], msg)
			// Pad to clear previous content
			if len(line) < lineWidth {
				line += strings.Repeat(" ", lineWidth-len(line))
			}
			fmt.Fprint(s.output, line)
			frame++
		}
	}
}

// formatDuration renders short step timings, e.g. "850ms" or "2.4s".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// ShouldShowProgress returns true if progress should be animated.
// Animation is used when stderr is a terminal.
func ShouldShowProgress() bool {
	return IsTerminalFunc(int(os.Stderr.Fd()))
}
