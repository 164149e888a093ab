package model

import (
	"time"

	"github.com/google/uuid"
)

// Player identifies a ranked player.
type Player struct {
	UUID uuid.UUID
	Name string
	// LastQuit is shown to clients only; it never affects ranking.
	LastQuit time.Time
}
