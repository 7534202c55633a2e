package progress

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmorganca/hdlgen/format"
)

type Spinner struct {
	message atomic.Value

	parts []string

	started time.Time

	mu      sync.Mutex
	stopped time.Time
}

func NewSpinner(message string) *Spinner {
	s := &Spinner{
		parts: []string{
			"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏",
		},
		started: time.Now(),
	}
	s.SetMessage(message)
	return s
}

func (s *Spinner) SetMessage(message string) {
	s.message.Store(message)
}

// String renders the message, the current frame and, once a second has
// passed, the elapsed time.
func (s *Spinner) String() string {
	var sb strings.Builder
	if message, _ := s.message.Load().(string); len(message) > 0 {
		sb.WriteString(strings.TrimSpace(message))
		sb.WriteString(" ")
	}

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()

	if stopped.IsZero() {
		elapsed := time.Since(s.started)
		sb.WriteString(s.parts[int(elapsed/(100*time.Millisecond))%len(s.parts)])
		sb.WriteString(" ")
		if elapsed >= time.Second {
			sb.WriteString(format.StepDuration(elapsed))
		}
	}

	return strings.TrimRight(sb.String(), " ")
}

func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped.IsZero() {
		s.stopped = time.Now()
	}
}
