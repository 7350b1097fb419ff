package builder

import (
	"errors"
	"fmt"
)

// Kind partitions build failures into the closed set the batch processor
// switches on. Anything outside this set is systemic and aborts the batch.
type Kind int

const (
	// KindMissingBlock: block data needed to date the fill is not captured
	// yet. The event stays pending and is retried in a later batch.
	KindMissingBlock Kind = iota + 1
	// KindUnsupportedAsset: an asset's token/bridge shape is not one the
	// builder has been taught. Skip the event, not a system fault.
	KindUnsupportedAsset
	// KindUnsupportedProtocol: the event's protocol version has no decoding
	// rule.
	KindUnsupportedProtocol
)

// Error is a classified build failure.
type Error struct {
	Kind    Kind
	EventID string
	Detail  string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingBlock:
		return fmt.Sprintf("missing block data for event %s", e.EventID)
	case KindUnsupportedAsset:
		return fmt.Sprintf("unsupported asset on event %s: %s", e.EventID, e.Detail)
	case KindUnsupportedProtocol:
		return fmt.Sprintf("unsupported protocol version on event %s: %s", e.EventID, e.Detail)
	default:
		return fmt.Sprintf("build failed for event %s: %s", e.EventID, e.Detail)
	}
}

// KindOf extracts the build-error kind, returning false for errors outside
// the closed set.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}
