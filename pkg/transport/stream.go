package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

// Stream speaks newline-delimited JSON over tcp://host:port or
// unix:///path/to.sock. One connection is kept per address and calls on it
// are serialized; a connection that fails is closed and redialled on the
// next call.
type Stream struct {
	// MaxResponseSize bounds a single response line.
	MaxResponseSize int

	dialer *net.Dialer
	conns  *xsync.MapOf[string, *streamConn]
}

type streamConn struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

func NewStream(dialTimeout time.Duration) *Stream {
	return &Stream{
		MaxResponseSize: DefaultMaxResponseSize,
		dialer:          &net.Dialer{Timeout: dialTimeout},
		conns:           xsync.NewMapOf[string, *streamConn](),
	}
}

func (s *Stream) Send(ctx context.Context, address string, request []byte) ([]byte, error) {
	network, target, err := streamTarget(address)
	if err != nil {
		return nil, err
	}

	sc, _ := s.conns.LoadOrCompute(address, func() *streamConn { return &streamConn{} })
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.conn == nil {
		conn, err := s.dialer.DialContext(ctx, network, target)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("network", network).Str("target", target).Msg("stream connected")
		sc.conn = conn
		sc.reader = bufio.NewReader(conn)
	}

	resp, err := sc.roundTrip(ctx, request, s.MaxResponseSize)
	if err != nil {
		sc.reset()
		return nil, contextError(ctx, err)
	}
	return resp, nil
}

func (sc *streamConn) roundTrip(ctx context.Context, request []byte, limit int) ([]byte, error) {
	deadline, _ := ctx.Deadline()
	if err := sc.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = sc.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	line := make([]byte, 0, len(request)+1)
	line = append(line, request...)
	line = append(line, '\n')
	if _, err := sc.conn.Write(line); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	for {
		resp, err := ReadLine(sc.reader, limit)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		resp = bytes.TrimSpace(resp)
		if len(resp) == 0 {
			continue
		}
		return resp, nil
	}
}

func (sc *streamConn) reset() {
	if sc.conn != nil {
		_ = sc.conn.Close()
	}
	sc.conn = nil
	sc.reader = nil
}

var ErrLineTooLong = errors.New("line exceeds the size limit")

// ReadLine reads one newline-terminated line of at most limit bytes, not
// counting the newline. A longer line is consumed up to its newline and
// reported as ErrLineTooLong, leaving r at the start of the next line.
func ReadLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			n := len(line) + len(chunk)
			if err == nil {
				n--
			}
			if n > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if tooLong {
			return nil, ErrLineTooLong
		}
		return line, err
	}
}

// Close closes every cached connection.
func (s *Stream) Close() error {
	s.conns.Range(func(address string, sc *streamConn) bool {
		sc.mu.Lock()
		sc.reset()
		sc.mu.Unlock()
		s.conns.Delete(address)
		return true
	})
	return nil
}

// contextError prefers the context's error over the i/o error it caused.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return err
}

var ErrBadStreamAddress = errors.New("stream address must be tcp://host:port or unix:///path")

func streamTarget(address string) (network, target string, err error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", "", err
	}
	switch u.Scheme {
	case "tcp", "tcp4", "tcp6":
		if u.Host == "" {
			return "", "", ErrBadStreamAddress
		}
		return u.Scheme, u.Host, nil
	case "unix":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return "", "", ErrBadStreamAddress
		}
		return "unix", path, nil
	}
	return "", "", ErrBadStreamAddress
}
