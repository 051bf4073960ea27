package region

import (
	"encoding/json"
	"errors"
	"strings"
)

func newUSStrategy(deps Deps) Strategy {
	return &acceptingStrategy{
		code:     CodeUS,
		validate: validateUS,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
}

// validateUS requires an identifier and a JSON object payload.
func validateUS(id, payload string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("flight plan id is required")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil || fields == nil {
		return errors.New("flight plan data must be a JSON object")
	}
	return nil
}
