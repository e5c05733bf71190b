package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/validation"
)

// UnknownValidatorError is returned when a declaration references a
// validator the registry does not know.
type UnknownValidatorError = validation.UnknownValidatorError

var (
	// ErrUnknownValidator matches UnknownValidatorError via errors.Is.
	ErrUnknownValidator = validation.ErrUnknownValidator
	// ErrDuplicateFieldID matches DuplicateFieldIDError via errors.Is.
	ErrDuplicateFieldID = errors.New("builder: duplicate field id")
	// ErrUnsupportedFormat is returned for declaration formats other than
	// JSON and YAML.
	ErrUnsupportedFormat = errors.New("builder: unsupported declaration format")
)

// DuplicateFieldIDError reports a field id declared by more than one input
// while merging or assembling forms.
type DuplicateFieldIDError struct {
	FieldID string
	Sources []string
}

func (e DuplicateFieldIDError) Error() string {
	if len(e.Sources) == 0 {
		return fmt.Sprintf("builder: duplicate field id %q", e.FieldID)
	}
	return fmt.Sprintf("builder: duplicate field id %q in %s", e.FieldID, strings.Join(e.Sources, ", "))
}

// Is lets errors.Is match against ErrDuplicateFieldID.
func (e DuplicateFieldIDError) Is(target error) bool {
	return target == ErrDuplicateFieldID
}
