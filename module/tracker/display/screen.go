package display

import (
	"fmt"
	"io"
	"os"
)

// Screen keeps what the small display shows and prints it on every change.
type Screen struct {
	Out    io.Writer
	Title  string
	Info   string
	Locked bool
	// Defined is false after undef until the next title or info.
	Defined bool
}

func (s *Screen) Apply(m Message) {
	switch m.Kind {
	case KindUndef:
		s.Defined = false
	case KindClear:
		s.Title, s.Info = "", ""
	case KindTitle:
		s.Title = m.Text
		s.Defined = true
	case KindInfo:
		s.Info = m.Text
		s.Defined = true
	case KindLock:
		s.Locked = true
	case KindUnlock:
		s.Locked = false
	case KindQuit:
		return
	}
	s.render()
}

func (s *Screen) render() {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}

	gps := "--"
	if s.Locked {
		gps = "OK"
	}
	if !s.Defined {
		fmt.Fprintf(out, "[gps %s] ---\n", gps)
		return
	}
	fmt.Fprintf(out, "[gps %s] %s | %s\n", gps, s.Title, s.Info)
}
