package parser

import (
	apperrors "github.com/profvis/pkg/errors"
)

var (
	// ErrInvalidFormat is returned when the input cannot be decoded.
	ErrInvalidFormat = apperrors.New(apperrors.CodeParseError, "invalid input format")

	// ErrEmptyInput is returned when the input holds no samples.
	ErrEmptyInput = apperrors.ErrEmptyInput

	// ErrUnsupportedFormat is returned for unregistered format names.
	ErrUnsupportedFormat = apperrors.New(apperrors.CodeNotFound, "unsupported format")

	// ErrTooManyTicks is returned when an expanded profile exceeds the
	// configured tick limit.
	ErrTooManyTicks = apperrors.New(apperrors.CodeInputTooLarge, "too many ticks")

	// ErrTooManyRows is returned when ticks times stack depth exceeds the
	// configured row limit.
	ErrTooManyRows = apperrors.New(apperrors.CodeInputTooLarge, "too many rows")

	// ErrInputTooLarge is returned when the decompressed input exceeds the
	// configured byte limit.
	ErrInputTooLarge = apperrors.New(apperrors.CodeInputTooLarge, "input too large")
)

// InvalidFormat builds a parse error.
func InvalidFormat(format string, args ...interface{}) error {
	return apperrors.Newf(apperrors.CodeParseError, format, args...)
}

// UnsupportedFormat reports an unknown format name.
func UnsupportedFormat(format string) error {
	return apperrors.Newf(apperrors.CodeNotFound, "unsupported format %q", format)
}
