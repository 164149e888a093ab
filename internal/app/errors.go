package service

import (
	"errors"

	"github.com/okian/ranked/internal/domain/model"
)

var (
	// ErrNotFound is returned when a player has no row in a ranking.
	ErrNotFound = model.ErrNotFound
	// ErrEmptyQuery is returned by SearchPlayers for a blank query.
	ErrEmptyQuery = errors.New("no query given")
)
