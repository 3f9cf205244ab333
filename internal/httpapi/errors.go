package httpapi

import "errors"

// errorAs reports whether err's chain contains a value assignable to T,
// a small generic wrapper around errors.As so statusFromError reads as a
// flat switch instead of a block of var declarations.
func errorAs[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
