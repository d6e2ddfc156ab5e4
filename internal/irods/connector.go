// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package irods

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/metrics"
)

// ConnectorConfig configures how new backend connections are established.
type ConnectorConfig struct {
	Host string
	Port int
	Zone string

	// Proxy is the privileged account every connection authenticates as.
	ProxyUsername string
	ProxyPassword string

	// DialsPerSecond paces new connections. Zero disables pacing.
	DialsPerSecond float64

	// FailureThreshold is the number of consecutive dial failures that opens
	// the breaker.
	FailureThreshold uint32

	// BreakerTimeout is how long the breaker stays open.
	BreakerTimeout time.Duration
}

// Connector dials and logs in backend connections behind a rate limiter and a
// circuit breaker.
type Connector struct {
	cfg     ConnectorConfig
	dialer  Dialer
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[Conn]
}

// NewConnector creates a connector for dialer.
func NewConnector(dialer Dialer, cfg ConnectorConfig) *Connector {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 10 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if cfg.DialsPerSecond > 0 {
		limit = rate.Limit(cfg.DialsPerSecond)
		burst = max(1, int(cfg.DialsPerSecond))
	}

	c := &Connector{
		cfg:     cfg,
		dialer:  dialer,
		limiter: rate.NewLimiter(limit, burst),
	}

	c.breaker = gobreaker.NewCircuitBreaker[Conn](gobreaker.Settings{
		Name:        "irods-dial",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Bad credentials say nothing about backend health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			e, ok := AsError(err)
			return ok && e.Code == CatInvalidAuthentication
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Backend dial circuit breaker changed state")
			metrics.RecordBreakerTransition(name, from.String(), to.String(), float64(to))
		},
	})

	return c
}

// Zone returns the local zone connections are made in.
func (c *Connector) Zone() string {
	return c.cfg.Zone
}

// ConnectAsProxy opens a connection authenticated as the proxy account and
// acting as the proxy account.
func (c *Connector) ConnectAsProxy(ctx context.Context) (Conn, error) {
	proxy := User{Name: c.cfg.ProxyUsername, Zone: c.cfg.Zone}
	return c.connect(ctx, "proxy", proxy, proxy, c.cfg.ProxyPassword)
}

// ConnectFor opens a connection acting for client. An empty password logs
// in as the proxy account on the client's behalf; otherwise the client logs
// in directly with its own password.
func (c *Connector) ConnectFor(ctx context.Context, client User, password string) (Conn, error) {
	if password == "" {
		proxy := User{Name: c.cfg.ProxyUsername, Zone: c.cfg.Zone}
		return c.connect(ctx, "compat_proxy", proxy, client, c.cfg.ProxyPassword)
	}
	return c.connect(ctx, "compat_direct", client, client, password)
}

func (c *Connector) connect(ctx context.Context, mode string, proxy, client User, password string) (Conn, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, ConnectionError("dial", err)
	}

	req := DialRequest{Host: c.cfg.Host, Port: c.cfg.Port, Proxy: proxy, Client: client}

	conn, err := c.breaker.Execute(func() (Conn, error) {
		conn, err := c.dialer.Dial(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := conn.Authenticate(ctx, password); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		metrics.BackendDials.WithLabelValues(mode, "failed").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ConnectionError("dial", fmt.Errorf("backend %s unavailable: %w", req.Address(), err))
		}
		return nil, ConnectionError("dial", err)
	}

	metrics.BackendDials.WithLabelValues(mode, "ok").Inc()
	return conn, nil
}
