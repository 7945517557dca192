package entity

import "errors"

// Ошибки конвейера классификации. Оборачиваются через fmt.Errorf("%w: ...").
var (
	ErrImageDecode              = errors.New("image decode error")
	ErrBackendUnavailable       = errors.New("inference backend unavailable")
	ErrBackendTimeout           = errors.New("inference backend timeout")
	ErrBackendMalformedResponse = errors.New("inference backend returned malformed response")
	ErrWeightsNotFound          = errors.New("model weights not found")
	ErrModelLoad                = errors.New("model load error")
	ErrPersistence              = errors.New("persistence failure")
	ErrNotFound                 = errors.New("not found")
	ErrInvalidInput             = errors.New("invalid input")
)
