package operator

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/example/rail-scheduler/internal/scheduler"
)

var spinner = []rune("⣾⣽⣻⢿⡿⣟⣯⣷")

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")).Padding(0, 1)
)

// Status keeps a one-line progress display on W and prints the outcome
// when the run finishes.
type Status struct {
	W       io.Writer
	NoColor bool
	// Inline redraws the line in place; otherwise each attempt is a line.
	Inline bool

	mu    sync.Mutex
	frame int
	dirty bool
}

func (s *Status) Attempt(n int, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := fmt.Sprintf("%c reservation pending: %s elapsed, %d attempts", spinner[s.frame%len(spinner)], Clock(elapsed), n)
	s.frame++
	if s.Inline {
		fmt.Fprint(s.W, "\r\033[K"+s.style(dimStyle, line))
		s.dirty = true
		return
	}
	fmt.Fprintln(s.W, s.style(dimStyle, line))
}

func (s *Status) Failure(rec scheduler.Recovery, err error) {
	if !rec.Notify && !rec.AskOperator {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breakLine()
	fmt.Fprintln(s.W, s.style(warnStyle, fmt.Sprintf("%s: %v", rec.Category, err)))
}

func (s *Status) Finished(res scheduler.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breakLine()
	// An aborted run prints nothing beyond its last failure.
	if res.State != scheduler.Succeeded {
		return
	}
	fmt.Fprintln(s.W, s.style(successStyle, "reserved"))
	fmt.Fprintln(s.W, scheduler.SuccessText(res.Reservation))
	if res.Paid {
		fmt.Fprintln(s.W, "payment complete")
	} else if res.PayErr != nil {
		fmt.Fprintln(s.W, s.style(warnStyle, "payment failed: "+res.PayErr.Error()))
	}
}

func (s *Status) breakLine() {
	if s.dirty {
		fmt.Fprintln(s.W)
		s.dirty = false
	}
}

func (s *Status) style(st lipgloss.Style, text string) string {
	if s.NoColor {
		return text
	}
	return st.Render(text)
}

// Clock formats d as hh:mm:ss.
func Clock(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", int(h), int(m), int(d/time.Second))
}
