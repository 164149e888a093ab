package remote

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ranked/internal/domain/model"
)

func (p playerDTO) toModel() (model.Player, error) {
	id, err := uuid.Parse(p.UUID)
	if err != nil {
		return model.Player{}, fmt.Errorf("player uuid %q: %w", p.UUID, err)
	}
	var lastQuit time.Time
	if p.LastQuit != "" {
		lastQuit, err = time.Parse(time.RFC3339, p.LastQuit)
		if err != nil {
			return model.Player{}, fmt.Errorf("player %s last_quit: %w", id, err)
		}
	}
	return model.Player{UUID: id, Name: p.Name, LastQuit: lastQuit}, nil
}
