package projector

import "errors"

// InvalidFillIDError reports a malformed fill id on an index-fill job.
// Terminal: the job is never retried. The message text is part of the
// queue consumer contract.
type InvalidFillIDError struct {
	FillID string
}

func (e *InvalidFillIDError) Error() string {
	return "Invalid fillId: " + e.FillID
}

// FillNotFoundError reports a well-formed fill id with no matching fill.
// Terminal: the job is never retried. The message text is part of the
// queue consumer contract.
type FillNotFoundError struct {
	FillID string
}

func (e *FillNotFoundError) Error() string {
	return "No fill found with the id: " + e.FillID
}

// IsTerminal reports whether err is one of the projector's permanent
// failures.
func IsTerminal(err error) bool {
	var invalid *InvalidFillIDError
	var notFound *FillNotFoundError
	return errors.As(err, &invalid) || errors.As(err, &notFound)
}
