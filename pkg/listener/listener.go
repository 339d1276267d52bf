// Package listener connects to a websocket endpoint and prints every frame it receives.
//
// The flow is strictly sequential: dial once, then read, print, pause, and
// read again until the peer closes the connection or a read fails. There is no
// reconnect and no keep-alive ping; liveness is left to the peer and the
// transport.
//
//	Connecting -> Open -> (Receiving <-> Sleeping) -> Closed
package listener

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrAddressRequired is returned when no address is configured
	ErrAddressRequired = errors.New("listener: address required")
	// ErrClosed is returned by Next after the loop has reached Closed
	ErrClosed = errors.New("listener: connection closed")
)

// DefaultPause is the delay inserted after each received frame
const DefaultPause = time.Second

// Config holds the options for one listening session
type Config struct {
	Address string
	// Header is sent with the upgrade request, e.g. an Authorization value.
	Header http.Header
	// InsecureSkipVerify disables certificate and hostname checks. Only for
	// dev/test endpoints with self-signed certificates.
	InsecureSkipVerify bool
	HandshakeTimeout   time.Duration
	// Pause is slept after every frame. Zero means DefaultPause; negative disables it.
	Pause time.Duration
}

// DefaultConfig returns a config for address with the standard pause and handshake timeout
func DefaultConfig(address string) Config {
	return Config{
		Address:          address,
		HandshakeTimeout: 10 * time.Second,
		Pause:            DefaultPause,
	}
}

// State is the position of a Listener in its lifecycle
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateReceiving
	StateSleeping
	StateClosed
)

func (s State) String() string {
	return [...]string{"CONNECTING", "OPEN", "RECEIVING", "SLEEPING", "CLOSED"}[s]
}

// Kind tells a frame apart from the two terminal outcomes
type Kind int

const (
	KindFrame Kind = iota
	KindClosed
	KindError
)

func (k Kind) String() string {
	return [...]string{"frame", "closed", "error"}[k]
}

// Result is the outcome of one read
type Result struct {
	Kind        Kind
	MessageType int
	Data        []byte
	// Err is set for KindClosed (a *websocket.CloseError sent by the peer) and KindError.
	Err error
}

// Terminal reports whether the result ends the loop
func (r Result) Terminal() bool {
	return r.Kind != KindFrame
}

// Conn is the subset of *websocket.Conn the listener reads from
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Listener owns a single websocket connection for its lifetime
type Listener struct {
	id     string
	cfg    Config
	conn   Conn
	out    io.Writer
	logger zerolog.Logger
	sleep  func(time.Duration)

	mu        sync.Mutex
	state     State
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Listener
type Option func(*Listener)

// WithOutput sets where frames and the terminal error are printed
func WithOutput(w io.Writer) Option {
	return func(l *Listener) { l.out = w }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Listener) { l.logger = logger }
}

// WithSleep replaces the pause function
func WithSleep(sleep func(time.Duration)) Option {
	return func(l *Listener) { l.sleep = sleep }
}

func newListener(cfg Config, conn Conn, opts []Option) *Listener {
	if cfg.Pause == 0 {
		cfg.Pause = DefaultPause
	}
	l := &Listener{
		id:     uuid.NewString(),
		cfg:    cfg,
		conn:   conn,
		out:    os.Stdout,
		logger: log.Logger,
		sleep:  time.Sleep,
		state:  StateOpen,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With().Str("session", l.id).Logger()
	return l
}

// NewFromConn wraps an already established connection
func NewFromConn(conn Conn, cfg Config, opts ...Option) *Listener {
	return newListener(cfg, conn, opts)
}

// Dial opens the websocket connection described by cfg. The context bounds
// the handshake only.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Listener, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	u, err := url.Parse(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listener: invalid address: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("listener: unsupported scheme %q (want ws or wss)", u.Scheme)
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	if cfg.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit dev/test opt-in
	}

	conn, resp, err := dialer.DialContext(ctx, cfg.Address, cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("listener: dial %s: %w (HTTP %d)", redact(u), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("listener: dial %s: %w", redact(u), err)
	}

	l := newListener(cfg, conn, opts)
	l.logger.Info().Str("address", redact(u)).Bool("insecure", cfg.InsecureSkipVerify).Msg("connected")
	return l, nil
}

// ID identifies this connection in log output
func (l *Listener) ID() string {
	return l.id
}

// State returns the current lifecycle state
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// setState moves to s unless the listener is already Closed, which is terminal
func (l *Listener) setState(s State) {
	l.mu.Lock()
	if l.state != StateClosed {
		l.state = s
	}
	l.mu.Unlock()
}

// Next blocks for the next frame. Close frames from the peer come back as
// KindClosed, every other read failure as KindError. After a terminal result
// the connection is released and further calls return KindError with ErrClosed.
func (l *Listener) Next() Result {
	if l.State() == StateClosed {
		return Result{Kind: KindError, Err: ErrClosed}
	}
	l.setState(StateReceiving)

	mt, data, err := l.conn.ReadMessage()
	if err != nil {
		l.Close()
		// 1006 is synthesized locally when the transport drops without a close frame
		var ce *websocket.CloseError
		if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
			return Result{Kind: KindClosed, Err: err}
		}
		return Result{Kind: KindError, Err: err}
	}
	return Result{Kind: KindFrame, MessageType: mt, Data: data}
}

// Run prints frames until the connection ends and returns the terminal result.
// Cancelling ctx closes the connection, which unblocks a pending read; the
// pause between frames is not interrupted.
func (l *Listener) Run(ctx context.Context) Result {
	defer l.Close()

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	for {
		res := l.Next()
		if res.Terminal() {
			if ctx.Err() != nil && res.Kind == KindError {
				res.Err = fmt.Errorf("%w: %v", ctx.Err(), res.Err)
			}
			fmt.Fprintln(l.out, res.Err)
			l.logger.Debug().Stringer("outcome", res.Kind).Err(res.Err).Msg("receive loop finished")
			return res
		}

		fmt.Fprintf(l.out, "< %s\n", res.Data)
		l.logger.Debug().Int("bytes", len(res.Data)).Int("type", res.MessageType).Msg("frame")

		if l.cfg.Pause > 0 {
			l.setState(StateSleeping)
			l.sleep(l.cfg.Pause)
		}
	}
}

// Close releases the connection. It is safe to call more than once.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.setState(StateClosed)
		l.closeErr = l.conn.Close()
	})
	return l.closeErr
}

// redact hides query values so tokens passed as parameters never reach the logs
func redact(u *url.URL) string {
	c := *u
	if c.RawQuery != "" {
		q := c.Query()
		for k := range q {
			q.Set(k, "xxxxx")
		}
		c.RawQuery = q.Encode()
	}
	c.User = nil
	return c.String()
}
