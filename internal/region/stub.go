package region

import (
	"errors"
	"strings"
)

func newStubStrategy(deps Deps) Strategy {
	return &acceptingStrategy{
		code:     CodeStub,
		validate: validateStub,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
}

func validateStub(id, _ string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("flight plan id is required")
	}
	return nil
}
