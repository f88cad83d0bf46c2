package display

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"os"
	"time"
)

const (
	readDeadline   = 200 * time.Millisecond
	maxMessageSize = 4096
)

// Listener is the receiving end of the display channel.
type Listener struct {
	path string
	conn *net.UnixConn
	last string
}

// Listen binds path, removing a stale socket file left by an earlier run.
func Listen(path string) (*Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("display listen %s: %w", path, err)
	}
	return &Listener{path: path, conn: conn}, nil
}

// Serve hands every new message to handle until ctx is done or a quit
// message arrives. A message equal to the previous one is skipped.
func (l *Listener) Serve(ctx context.Context, handle func(Message)) error {
	buf := make([]byte, maxMessageSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if err := l.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		n, _, err := l.conn.ReadFromUnix(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("display read: %w", err)
		}

		raw := string(buf[:n])
		if raw == l.last {
			continue
		}
		l.last = raw

		msg, err := ParseMessage(raw)
		if err != nil {
			log.Printf("display message dropped: %v", err)
			continue
		}
		handle(msg)
		if msg.Kind == KindQuit {
			return nil
		}
	}
}

// Close closes the socket and removes its file.
func (l *Listener) Close() error {
	err := l.conn.Close()
	if rmErr := os.Remove(l.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
		err = rmErr
	}
	return err
}
