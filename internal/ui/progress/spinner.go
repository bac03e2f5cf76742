// Package progress provides progress indication components.
//
// The Spinner shows an animated status line on a terminal while a call to
// the save service is in flight.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
)

// stopTimeout bounds how long Stop waits for the last frame.
const stopTimeout = 500 * time.Millisecond

type (
	setMessage string
	stopMsg    struct{}
)

// Spinner wraps a Bubbletea spinner for simple non-interactive use.
type Spinner struct {
	out     io.Writer
	message string

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

type spinnerModel struct {
	spinner spinner.Model
	message string
	stopped bool
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case setMessage:
		m.message = string(msg)
		return m, nil
	case stopMsg:
		m.stopped = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m spinnerModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m spinnerModel) render() string {
	if m.stopped || m.message == "" {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.message)
}

// NewSpinner returns a spinner drawing message to out.
func NewSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{out: out, message: message}
}

func (s *Spinner) model() spinnerModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return spinnerModel{spinner: sp, message: s.message}
}

// Start begins the animation. It reads no input and installs no signal
// handler, so Ctrl-C still reaches the command's context.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program != nil {
		return
	}
	s.program = tea.NewProgram(s.model(),
		tea.WithInput(nil),
		tea.WithOutput(s.out),
		tea.WithColorProfile(colorprofile.Detect(s.out, os.Environ())),
		tea.WithoutSignalHandler())
	s.done = make(chan struct{})

	p, done := s.program, s.done
	go func() {
		defer close(done)
		_, _ = p.Run()
	}()
}

// SetMessage replaces the status text.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = message
	if s.program != nil {
		s.program.Send(setMessage(message))
	}
}

// Stop ends the animation and clears the line. It is safe to call on a
// spinner that never started.
func (s *Spinner) Stop() {
	s.mu.Lock()
	p, done := s.program, s.done
	s.program = nil
	s.mu.Unlock()

	if p == nil {
		return
	}
	p.Send(stopMsg{})

	select {
	case <-done:
	case <-time.After(stopTimeout):
		p.Kill()
	}
	fmt.Fprint(s.out, "\r\033[K")
}
