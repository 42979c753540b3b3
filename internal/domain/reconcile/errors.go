package reconcile

import (
	"errors"
	"fmt"

	"github.com/okian/autorole/internal/domain/catalog"
)

// TagExceeds is the discriminator tag of ExceedsDetectedMaximumError.
const TagExceeds = "🚫"

// ErrInconsistentDiff means a role was staged both for addition and removal.
var ErrInconsistentDiff = errors.New("role staged for both add and remove")

// ExceedsDetectedMaximumError rejects an override above the measured maximum.
type ExceedsDetectedMaximumError struct {
	Category    catalog.Category
	Requested   int
	DetectedMax int
}

func (e *ExceedsDetectedMaximumError) Error() string {
	return fmt.Sprintf("requested %s speed %d exceeds detected maximum %d", e.Category, e.Requested, e.DetectedMax)
}

// Tag returns the discriminator tag of err, or "".
func Tag(err error) string {
	var exceeds *ExceedsDetectedMaximumError
	if errors.As(err, &exceeds) {
		return TagExceeds
	}
	return ""
}

// Kind returns a short metric label for err.
func Kind(err error) string {
	var exceeds *ExceedsDetectedMaximumError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &exceeds):
		return "exceeds_detected_maximum"
	case errors.Is(err, ErrInconsistentDiff):
		return "inconsistent_diff"
	default:
		return "unknown"
	}
}
