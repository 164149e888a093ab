package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/okian/ranked/internal/domain/model"
)

// selectors are the ranking coordinates shared by /ranking and /player-ranks.
type selectors struct {
	kind model.Kind
	tr   model.TimeRange
}

// parseSelectors reads type and time_range, defaulting to break and all.
func parseSelectors(q url.Values) (selectors, error) {
	sel := selectors{kind: model.Break, tr: model.All}
	if raw := q.Get("type"); raw != "" {
		kind, err := model.ParseKind(raw)
		if err != nil {
			return sel, fmt.Errorf("%s is not a recognized attribution specifier", raw)
		}
		sel.kind = kind
	}
	if raw := q.Get("time_range"); raw != "" {
		tr, err := model.ParseTimeRange(raw)
		if err != nil {
			return sel, fmt.Errorf("%s is not a recognized duration specifier.", raw) //nolint:staticcheck // client-facing message
		}
		sel.tr = tr
	}
	return sel, nil
}

// parseCount reads a non-negative integer parameter, or def when absent.
func parseCount(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%s is too large for a %s", raw, name)
		}
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return n, nil
}
