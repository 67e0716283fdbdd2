package render

import (
	"errors"
	"fmt"
)

// UnsupportedFeatureError is returned when a grammar cannot compile part of
// a statement. It matches errors.ErrUnsupported.
type UnsupportedFeatureError struct {
	Grammar string
	Feature string
	// Alternative names what to call instead, if anything.
	Alternative string
}

func (e UnsupportedFeatureError) Error() string {
	msg := fmt.Sprintf("%s grammar cannot compile %s", e.Grammar, e.Feature)
	if e.Alternative != "" {
		msg += "; " + e.Alternative
	}
	return msg
}

// Is reports whether target is errors.ErrUnsupported.
func (e UnsupportedFeatureError) Is(target error) bool {
	return target == errors.ErrUnsupported
}

// NewUnsupportedFeatureError builds an UnsupportedFeatureError for grammar.
func NewUnsupportedFeatureError(grammar, feature string, alternative ...string) error {
	err := UnsupportedFeatureError{Grammar: grammar, Feature: feature}
	if len(alternative) > 0 {
		err.Alternative = alternative[0]
	}
	return err
}
