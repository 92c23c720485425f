package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dutchcoders/go-clamd"
)

// ErrMalicious is returned when clamd flags the stream.
var ErrMalicious = errors.New("malicious file detected")

// Scanner checks an upload before it leaves the server.
type Scanner interface {
	Scan(ctx context.Context, data []byte) error
}

// Noop accepts everything. Used when no clamd address is configured.
type Noop struct{}

func (Noop) Scan(context.Context, []byte) error { return nil }

// New returns a clamd scanner for addr, or Noop when addr is empty.
// addr takes the go-clamd form: tcp://host:3310 or a unix socket path.
func New(addr string) Scanner {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return Noop{}
	}
	return &Clamd{client: clamd.NewClamd(addr)}
}

// Clamd streams the payload to clamd with INSTREAM.
type Clamd struct {
	client *clamd.Clamd
}

func (c *Clamd) Scan(ctx context.Context, data []byte) error {
	abort := make(chan bool)
	var closeOnce sync.Once
	stop := func() { closeOnce.Do(func() { close(abort) }) }
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	results, err := c.client.ScanStream(bytes.NewReader(data), abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}

	var scanErr error
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			scanErr = fmt.Errorf("%w: %s", ErrMalicious, strings.TrimSpace(result.Description))
		default:
			if scanErr == nil {
				scanErr = fmt.Errorf("clamd returned %s: %s", result.Status, strings.TrimSpace(result.Raw))
			}
		}
	}
	if scanErr != nil {
		return scanErr
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scan cancelled: %w", err)
	}
	return nil
}

// Ping checks that clamd answers.
func (c *Clamd) Ping() error {
	return c.client.Ping()
}
