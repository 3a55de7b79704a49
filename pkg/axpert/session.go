package axpert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	DEFAULT_TIMEOUT = 5 * time.Second
)

type Endpoint struct {
	Host         string
	Port         uint
	PollInterval time.Duration // 0 means on-demand
	Timeout      time.Duration
}

func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.FormatUint(uint64(e.Port), 10))
}

// EffectiveTimeout is the session deadline, DEFAULT_TIMEOUT when unset.
func (e Endpoint) EffectiveTimeout() time.Duration {
	if e.Timeout <= 0 {
		return DEFAULT_TIMEOUT
	}
	return e.Timeout
}

// Dialer is satisfied by *net.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Instrument struct {
	RecordTime func(fnName string, elapsed time.Duration)
}

func RecordTimer(name string, instrument []Instrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, elapsed)
		}
	}
}

// Session is one TCP connection used for a single poll or set cycle.
type Session struct {
	ctx        context.Context
	cancel     context.CancelFunc
	stop       func() bool
	conn       net.Conn
	reader     *bufio.Reader
	instrument []Instrument
	closed     bool
}

// OpenSession dials the endpoint. Every dial, write and read of the session
// shares one deadline of endpoint.Timeout; if ctx is cancelled while an
// operation is blocked the connection is forcibly closed.
func OpenSession(ctx context.Context, dialer Dialer, endpoint Endpoint, instrument []Instrument) (*Session, error) {
	deadline := time.Now().Add(endpoint.EffectiveTimeout())
	ctx, cancel := context.WithDeadline(ctx, deadline)

	connected := RecordTimer("Connect", instrument)
	conn, err := dialer.DialContext(ctx, "tcp", endpoint.Address())
	connected()
	if err != nil {
		err = classifyError(ctx, "connect", err)
		cancel()
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})

	if err := conn.SetDeadline(deadline); err != nil {
		err = classifyError(ctx, "set deadline", err)
		stop()
		conn.Close()
		cancel()
		return nil, err
	}

	return &Session{
		ctx:        ctx,
		cancel:     cancel,
		stop:       stop,
		conn:       conn,
		reader:     bufio.NewReader(conn),
		instrument: instrument,
	}, nil
}

// WithSession runs body on a fresh session and closes it on every exit path.
func WithSession(ctx context.Context, dialer Dialer, endpoint Endpoint, instrument []Instrument, body func(*Session) error) error {
	s, err := OpenSession(ctx, dialer, endpoint, instrument)
	if err != nil {
		return err
	}
	defer s.Close()
	return body(s)
}

// Close is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stop()
	err := s.conn.Close()
	s.cancel()
	return err
}

func (s *Session) Write(data []byte) error {
	defer RecordTimer("Write", s.instrument)()
	if _, err := s.conn.Write(data); err != nil {
		return classifyError(s.ctx, "write", err)
	}
	return nil
}

func (s *Session) ReadFrame() (Frame, error) {
	defer RecordTimer("ReadFrame", s.instrument)()
	frame, err := DecodeFrame(s.reader)
	if err != nil {
		return frame, classifyError(s.ctx, "read", err)
	}
	return frame, nil
}

func classifyError(ctx context.Context, op string, err error) error {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransport) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}
