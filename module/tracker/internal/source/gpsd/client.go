// Package gpsd reads position reports from a gpsd daemon in JSON watch mode.
package gpsd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/internal/source"
)

const (
	DefaultAddr = "127.0.0.1:2947"

	watchCommand = `?WATCH={"enable":true,"json":true};` + "\n"
	dialTimeout  = 3 * time.Second
)

type Client struct {
	addr string

	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	pending []byte
}

func NewClient(addr string) *Client {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Client{addr: addr}
}

// Connect dials gpsd and arms streaming mode. An existing connection is closed first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("gpsd connect: %w", err)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("gpsd watch: %w", err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.pending = c.pending[:0]
	log.Printf("gpsd connected to %s", c.addr)
	return nil
}

// Read returns the next TPV report, waiting at most wait. Lines of other
// classes are skipped. A partial line left by a timeout is kept for the next call.
func (c *Client) Read(ctx context.Context, wait time.Duration) (domain.Fix, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return domain.Fix{}, domain.ErrNotConnected
	}

	deadline := time.Now().Add(wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for {
		if err := ctx.Err(); err != nil {
			return domain.Fix{}, err
		}
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return domain.Fix{}, fmt.Errorf("gpsd deadline: %w", err)
		}

		chunk, err := c.reader.ReadBytes('\n')
		c.pending = append(c.pending, chunk...)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return domain.Fix{}, domain.ErrNoReport
			}
			return domain.Fix{}, fmt.Errorf("gpsd read: %w", err)
		}

		line := bytes.TrimSpace(c.pending)
		if len(line) == 0 || !source.IsPositionReport(line) {
			c.pending = c.pending[:0]
			continue
		}
		fix := source.DecodeReport(line)
		c.pending = c.pending[:0]
		return fix, nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	c.pending = c.pending[:0]
	return err
}
