package api

import (
	"time"

	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
)

const defaultRequestTimeout = 5 * time.Second

type settings struct {
	botToken       string
	requestTimeout time.Duration
	log            logger.Logger
	now            func() time.Time
}

// Option configures the API server.
type Option func(*settings)

// WithBotToken sets the value the X-Bot-Token header must carry.
// An empty token disables the check.
func WithBotToken(token string) Option {
	return func(s *settings) {
		s.botToken = token
	}
}

// WithRequestTimeout bounds how long one update may wait for processing.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
