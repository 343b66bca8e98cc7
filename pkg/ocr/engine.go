package ocr

import (
	"context"
	"errors"
	"fmt"
)

// Engine is the narrow text-in/text-out interface every OCR backend
// satisfies. Implementations must respect the context deadline.
type Engine interface {
	ExtractText(ctx context.Context, data []byte, filename string) (string, error)
}

// TransportError marks an OCR failure that the pipeline recovers from
// locally: the caller reports the extraction as failed and proceeds with
// an empty partial record.
type TransportError struct {
	reason error
}

func NewTransportError(reason error) TransportError {
	return TransportError{reason: reason}
}

func (e TransportError) Error() string {
	return fmt.Sprintf("ocr transport: %v", e.reason)
}

func (e TransportError) Unwrap() error {
	return e.reason
}

func IsTransportError(err error) bool {
	var te TransportError
	return errors.As(err, &te)
}
