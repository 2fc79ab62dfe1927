package service

import "errors"

var (
	// ErrInvalidGeometry is returned when width, height or border width is not positive.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrDecode is returned when input bytes are not a decodable image.
	ErrDecode = errors.New("decode image")
	// ErrComposition is returned when a transform or the final encode fails.
	ErrComposition = errors.New("compose image")
	// ErrEncoding is returned when a result cannot be serialised for transport.
	ErrEncoding = errors.New("encode result")
	// ErrRemovalFailed marks any failure of the background remover.
	ErrRemovalFailed = errors.New("background removal failed")
	// ErrSheetCapacity is returned when the requested copies do not fit the sheet.
	ErrSheetCapacity = errors.New("sheet capacity exceeded")
)
