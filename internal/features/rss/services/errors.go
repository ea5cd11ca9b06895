package services

import (
	"errors"
	"fmt"

	"feedwatch/internal/core"
)

// Classify maps a fetch or parse failure onto the error taxonomy. Errors that
// already carry an application code pass through unchanged.
func Classify(err error) *core.AppError {
	if err == nil {
		return nil
	}

	var appErr *core.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return core.NewNetworkError(statusErr.StatusCode,
			fmt.Sprintf("request failed with status %d", statusErr.StatusCode), err)
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return core.NewUnknownError("unsupported feed format", err)
	}

	return core.NewUnknownError("no response from feed", err)
}
