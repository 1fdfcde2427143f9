package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyContent is returned before any dispatch when no bytes were given.
	ErrEmptyContent = errors.New("empty content")
	// ErrUnsupportedFormat is returned when a file with an unknown suffix is
	// not readable as PDF either.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrNoCapability is a configuration error: the extractor a format needs
	// has been switched off.
	ErrNoCapability = errors.New("no extraction capability")
)

// ExtractionError tags any extraction failure with the file it concerns.
type ExtractionError struct {
	FileName string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract text from %s: %v", e.FileName, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
