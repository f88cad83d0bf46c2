// Package display speaks the small-display side channel: newline-free UTF-8
// datagrams over a local unix socket.
package display

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type MessageKind string

const (
	KindUndef  MessageKind = "undef"
	KindClear  MessageKind = "clear"
	KindTitle  MessageKind = "title"
	KindInfo   MessageKind = "info"
	KindLock   MessageKind = "lock"
	KindUnlock MessageKind = "unlock"
	KindQuit   MessageKind = "quit"
)

type Message struct {
	Kind MessageKind
	Text string
}

func TitleMessage(text string) Message { return Message{Kind: KindTitle, Text: text} }
func InfoMessage(text string) Message  { return Message{Kind: KindInfo, Text: text} }

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// String renders the wire form. Newlines in the text are folded to spaces.
func (m Message) String() string {
	switch m.Kind {
	case KindTitle, KindInfo:
		return string(m.Kind) + ":" + newlines.Replace(m.Text)
	default:
		return string(m.Kind)
	}
}

func ParseMessage(raw string) (Message, error) {
	if !utf8.ValidString(raw) {
		return Message{}, fmt.Errorf("message: invalid utf-8")
	}
	if strings.ContainsAny(raw, "\r\n") {
		return Message{}, fmt.Errorf("message: must not contain newlines")
	}

	switch MessageKind(raw) {
	case KindUndef, KindClear, KindLock, KindUnlock, KindQuit:
		return Message{Kind: MessageKind(raw)}, nil
	}

	kind, text, ok := strings.Cut(raw, ":")
	if ok && (MessageKind(kind) == KindTitle || MessageKind(kind) == KindInfo) {
		return Message{Kind: MessageKind(kind), Text: text}, nil
	}
	return Message{}, fmt.Errorf("message: unknown %q", raw)
}
