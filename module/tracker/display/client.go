package display

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

const (
	DefaultSocket        = "/tmp/busmobile-display.sock"
	DefaultRetryInterval = 10 * time.Second

	stoppingTitle = "STOP"
	stoppingInfo  = "waiting for shutdown"
	farewellTitle = "STATUS"
	farewellInfo  = "tracking stopped"
)

var ErrUnavailable = errors.New("display unavailable")

// Client sends display messages as unixgram datagrams. A failed send drops the
// connection; the next send after the retry interval reconnects.
type Client struct {
	path          string
	retryInterval time.Duration
	now           func() time.Time

	mu          sync.Mutex
	conn        *net.UnixConn
	lastAttempt time.Time
	quitOnClose bool
}

func NewClient(path string) *Client {
	return &Client{
		path:          path,
		retryInterval: DefaultRetryInterval,
		now:           time.Now,
	}
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	c.lastAttempt = c.now()
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: c.path, Net: "unixgram"})
	if err != nil {
		return fmt.Errorf("display connect %s: %w", c.path, err)
	}
	c.conn = conn
	log.Printf("display connected on %s", c.path)

	return c.writeLocked(Message{Kind: KindUndef}, Message{Kind: KindClear})
}

// Send writes the messages in order, reconnecting first when allowed.
func (c *Client) Send(msgs ...Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if c.now().Sub(c.lastAttempt) < c.retryInterval {
			return ErrUnavailable
		}
		if err := c.connectLocked(); err != nil {
			return err
		}
	}
	return c.writeLocked(msgs...)
}

func (c *Client) writeLocked(msgs ...Message) error {
	for _, m := range msgs {
		if _, err := c.conn.Write([]byte(m.String())); err != nil {
			_ = c.conn.Close()
			c.conn = nil
			c.lastAttempt = c.now()
			return fmt.Errorf("display send %s: %w", m.Kind, err)
		}
	}
	return nil
}

func (c *Client) SetLock(locked bool) error {
	if locked {
		return c.Send(Message{Kind: KindLock})
	}
	return c.Send(Message{Kind: KindUnlock})
}

func (c *Client) ShowFence(title, notice string) error {
	return c.Send(TitleMessage(title), InfoMessage(notice))
}

func (c *Client) Clear() error {
	return c.Send(Message{Kind: KindClear})
}

// ShowStopping announces a shutdown in progress.
func (c *Client) ShowStopping() error {
	return c.Send(TitleMessage(stoppingTitle), InfoMessage(stoppingInfo))
}

// QuitOnClose makes Close end with a quit message, so the display process
// exits together with the tracker.
func (c *Client) QuitOnClose(quit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quitOnClose = quit
}

// Close leaves a status screen on the display and closes the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	msgs := []Message{
		{Kind: KindUndef},
		{Kind: KindClear},
		TitleMessage(farewellTitle),
		InfoMessage(farewellInfo),
	}
	if c.quitOnClose {
		msgs = append(msgs, Message{Kind: KindQuit})
	}
	err := c.writeLocked(msgs...)
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	return err
}
