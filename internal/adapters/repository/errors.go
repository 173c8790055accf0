package repository

import (
	"errors"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound            = model.ErrIdentityNotFound
	ErrBadPassword         = model.ErrBadPassword
	ErrStorage             = errors.New("storage error")
	ErrUnsupportedDatabase = errors.New("unsupported database url")
)
