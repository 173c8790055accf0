package conversation

import (
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPageSize sets the number of teams per chooser page.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
