package codec

import "errors"

var (
	// ErrCodecNotFound is returned when a codec is not found in the registry
	ErrCodecNotFound = errors.New("codec not found")

	// ErrInvalidParameter is returned when encoding/decoding parameters are invalid
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidQuality is returned when the quality parameter is outside [1,100]
	ErrInvalidQuality = errors.New("invalid quality (must be 1-100)")

	// ErrInvalidDimensions is returned when a dimension is zero or inconsistent
	// with the payload size
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrMagicMismatch is returned when the magic string or block-size string
	// of a stream header does not match the expected value
	ErrMagicMismatch = errors.New("header magic mismatch")

	// ErrTruncatedStream is returned on EOF before the expected end of a stream
	ErrTruncatedStream = errors.New("truncated stream")
)
