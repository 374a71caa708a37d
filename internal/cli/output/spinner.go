package output

import (
	"fmt"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows progress on the error output while a long step runs.
// It only animates on a terminal.
type Spinner struct {
	r    *Renderer
	msg  string
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSpinner creates a spinner with the given message.
func (r *Renderer) NewSpinner(msg string) *Spinner {
	return &Spinner{r: r, msg: msg}
}

// Start begins the animation.
func (s *Spinner) Start() {
	if !s.r.isTTY {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			_, _ = fmt.Fprintf(s.r.errOut, "\r%s %s", s.r.styles.Info.Render(spinnerFrames[i%len(spinnerFrames)]), s.msg)
			select {
			case <-s.stop:
				_, _ = fmt.Fprint(s.r.errOut, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Spinner) halt() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
			<-s.done
		}
	})
}

// Success stops the spinner and prints a success message.
func (s *Spinner) Success(msg string) {
	s.halt()
	s.r.Success(msg)
}

// Fail stops the spinner and prints an error message.
func (s *Spinner) Fail(msg string) {
	s.halt()
	s.r.Error(msg)
}

// Stop stops the spinner without a message.
func (s *Spinner) Stop() {
	s.halt()
}
