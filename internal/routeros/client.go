package routeros

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	goros "github.com/go-routeros/routeros/v3"
	"github.com/rs/zerolog"
)

// Session is one live API conversation with a router.
type Session interface {
	Run(ctx context.Context, cmd string, args ...string) (*goros.Reply, error)
	Close() error
}

// DialFunc opens a new session for a normalized connection profile.
type DialFunc func(ctx context.Context, cfg Config) (Session, error)

var (
	errClientClosed = errors.New("routeros client closed")
	errInterrupted  = errors.New("routeros command interrupted")
)

// Client wraps a go-routeros connection with context-aware execution. The
// API protocol answers in request order, so commands on one Client run one
// at a time.
type Client struct {
	config Config
	logger zerolog.Logger

	runMu sync.Mutex

	mu      sync.Mutex
	conn    *goros.Client
	netConn net.Conn
	closed  bool

	runFn   func(ctx context.Context, conn *goros.Client, cmd string, args ...string) (*goros.Reply, error)
	closeFn func(conn *goros.Client) error
}

// DialRouterOS returns a DialFunc backed by the RouterOS API protocol.
func DialRouterOS(logger zerolog.Logger) DialFunc {
	return func(ctx context.Context, cfg Config) (Session, error) {
		client, err := Dial(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Dial connects and logs in to the router described by cfg.
func Dial(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	netConn, err := dialNet(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client, err := newClient(ctx, cfg, netConn, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("address", cfg.Address).Bool("tls", cfg.UseTLS).Msg("routeros session opened")
	return client, nil
}

// newClient logs in over an established connection. The login is bounded by
// cfg.Timeout.
func newClient(ctx context.Context, cfg Config, netConn net.Conn, logger zerolog.Logger) (*Client, error) {
	loginCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if deadline, ok := loginCtx.Deadline(); ok {
		_ = netConn.SetDeadline(deadline)
	}

	conn, err := goros.NewClient(netConn)
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("routeros session %s: %w", cfg.Address, err)
	}
	if err := conn.LoginContext(loginCtx, cfg.Username, cfg.Password); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("routeros login %s: %w", cfg.Address, err)
	}
	_ = netConn.SetDeadline(time.Time{})

	return &Client{
		config:  cfg,
		logger:  logger,
		conn:    conn,
		netConn: netConn,
		runFn:   runRouterOS,
		closeFn: closeRouterOS,
	}, nil
}

// Run executes one command sentence on the session. The context deadline is
// applied to the socket; a command cut short by it closes the session, since
// the reply stream can no longer be trusted.
func (c *Client) Run(ctx context.Context, cmd string, args ...string) (*goros.Reply, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	netConn := c.netConn
	closed := c.closed
	c.mu.Unlock()
	if closed || conn == nil {
		return nil, errClientClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if netConn != nil {
		if deadline, ok := ctx.Deadline(); ok {
			_ = netConn.SetDeadline(deadline)
		}
		stop := context.AfterFunc(ctx, func() {
			_ = netConn.SetDeadline(time.Now())
		})
		defer func() {
			stop()
			_ = netConn.SetDeadline(time.Time{})
		}()
	}

	reply, err := c.runFn(ctx, conn, cmd, args...)
	if err != nil && (ctx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded)) {
		c.logger.Warn().Err(err).Str("address", c.config.Address).Str("command", cmd).Msg("routeros command interrupted")
		if closeErr := c.Close(); closeErr != nil {
			c.logger.Debug().Err(closeErr).Str("address", c.config.Address).Msg("close interrupted session")
		}
		return nil, fmt.Errorf("%w: %s: %w", errInterrupted, cmd, errors.Join(ctx.Err(), err))
	}
	return reply, err
}

// Close releases the network connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	if conn == nil {
		return nil
	}
	c.logger.Debug().Str("address", c.config.Address).Msg("routeros session closed")
	return c.closeFn(conn)
}

func dialNet(ctx context.Context, cfg Config) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var (
		conn net.Conn
		err  error
	)
	if cfg.UseTLS {
		dialer := &tls.Dialer{Config: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec
		}}
		conn, err = dialer.DialContext(dialCtx, "tcp", cfg.Address)
	} else {
		conn, err = new(net.Dialer).DialContext(dialCtx, "tcp", cfg.Address)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Address, err)
	}
	return conn, nil
}

func runRouterOS(ctx context.Context, conn *goros.Client, cmd string, args ...string) (*goros.Reply, error) {
	sentence := make([]string, 0, len(args)+1)
	sentence = append(sentence, cmd)
	sentence = append(sentence, args...)
	return conn.RunArgsContext(ctx, sentence)
}

func closeRouterOS(conn *goros.Client) error {
	return conn.Close()
}
