package rehydrate

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/internal/domain/ranking"
)

func TestRefreshKindRejectsUnknownKind(t *testing.T) {
	l := New(ranking.NewStore(), Providers{})
	err := guard(func() {
		l.refreshKind(context.Background(), model.Kind(9))
	})()
	if !errors.Is(err, ErrLoopFatal) {
		t.Fatalf("expected ErrLoopFatal, got %v", err)
	}
}
