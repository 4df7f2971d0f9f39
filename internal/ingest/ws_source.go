package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSConfig holds WebSocket source settings.
type WSConfig struct {
	Endpoint         string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

// DefaultWSConfig returns production defaults for the given endpoint.
func DefaultWSConfig(endpoint string) WSConfig {
	return WSConfig{
		Endpoint:         endpoint,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		ReconnectInitial: 1 * time.Second,
		ReconnectMax:     30 * time.Second,
	}
}

// WSSource reads frames from a WebSocket telematics feed. It
// reconnects with exponential backoff when the connection drops.
type WSSource struct {
	cfg    WSConfig
	logger zerolog.Logger
	conn   *websocket.Conn
}

// NewWSSource dials the feed and returns a connected source.
func NewWSSource(ctx context.Context, cfg WSConfig, logger zerolog.Logger) (*WSSource, error) {
	s := &WSSource{cfg: cfg, logger: logger}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WSSource) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}

	op := func() error {
		conn, _, err := dialer.DialContext(ctx, s.cfg.Endpoint, nil)
		if err != nil {
			s.logger.Warn().Err(err).Str("endpoint", s.cfg.Endpoint).Msg("feed dial failed, retrying")
			return err
		}
		s.conn = conn
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.ReconnectInitial
	bo.MaxInterval = s.cfg.ReconnectMax
	bo.MaxElapsedTime = 0

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("dial telematics feed: %w", err)
	}
	s.logger.Info().Str("endpoint", s.cfg.Endpoint).Msg("connected to telematics feed")
	return nil
}

// Next reads the next frame, reconnecting if the connection drops.
func (s *WSSource) Next(ctx context.Context) (*Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.cfg.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		var frame Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			s.logger.Warn().Err(err).Msg("feed read failed, reconnecting")
			_ = s.conn.Close()
			if err := s.connect(ctx); err != nil {
				return nil, err
			}
			continue
		}
		return &frame, nil
	}
}

// Close closes the underlying connection.
func (s *WSSource) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
