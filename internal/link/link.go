// internal/link/link.go
package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Classified exchange failures. Callers branch with errors.Is.
var (
	ErrConnect = errors.New("link: connect failed")
	ErrTimeout = errors.New("link: exchange timed out")
	ErrIO      = errors.New("link: read/write failed")
)

// Link owns the transport to the controller and executes one request/response
// exchange at a time. The controller accepts a single request per connection
// and cannot multiplex, so every exchange dials a fresh connection and the
// mutex keeps at most one exchange in flight across all callers.
type Link struct {
	mu       sync.Mutex
	endpoint string
	timeout  time.Duration
	log      *zap.Logger
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// New creates a Link. The timeout bounds every exchange; the controller
// firmware has no keepalive, so an unbounded read would hang forever.
func New(cfg Config, log *zap.Logger) (*Link, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("link: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Link{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		log:      log,
	}, nil
}

// Exchange sends one request line and returns the reply line.
// Exchanges are serialized: a second caller blocks until the first resolves.
// The returned error is ErrConnect, ErrTimeout, or ErrIO (wrapped), or a
// context error if ctx was cancelled while waiting.
func (l *Link) Exchange(ctx context.Context, request string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.log.Debug("exchange", zap.String("request", strings.TrimRight(request, "\n")))

	deadline := time.Now().Add(l.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", l.endpoint)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: dial %s: %v", ErrTimeout, l.endpoint, err)
		}
		return "", fmt.Errorf("%w: dial %s: %v", ErrConnect, l.endpoint, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write([]byte(request)); err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: write: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: write: %v", ErrIO, err)
	}

	// The controller answers with a single line. Some firmware revisions omit
	// the trailing newline (the bare "OK" ack) and just close the connection,
	// so a partial line at EOF is still a valid reply. A partial line cut off
	// by the deadline is NOT: accepting it would hand a truncated token to the
	// decoder and cache a wrong value as healthy.
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: read: %v", ErrTimeout, err)
		}
		if !errors.Is(err, io.EOF) || line == "" {
			return "", fmt.Errorf("%w: read: %v", ErrIO, err)
		}
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
