package utils

import "errors"

var (
	// ErrModelResponse indicates the model returned an unusable response.
	ErrModelResponse = errors.New("model response error")
	// ErrJSONProcessing indicates a JSON serialization failure.
	ErrJSONProcessing = errors.New("JSON processing error")
)
