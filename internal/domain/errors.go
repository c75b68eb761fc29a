package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so wrapped copies made by
// WithError/WithMessage still satisfy errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// WithMessage returns a copy of the error with a more specific client-facing message.
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    message,
		StatusCode: e.StatusCode,
		Err:        e.Err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrInvalidRequest = &AppError{
		Code:       "INVALID_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNameRequired = &AppError{
		Code:       "INVALID_REQUEST",
		Message:    "Person name is required",
		StatusCode: 400,
	}

	ErrFileRequired = &AppError{
		Code:       "INVALID_REQUEST",
		Message:    "No file part",
		StatusCode: 400,
	}

	ErrNoSelectedFile = &AppError{
		Code:       "INVALID_REQUEST",
		Message:    "No selected file",
		StatusCode: 400,
	}

	ErrFileTypeNotAllowed = &AppError{
		Code:       "INVALID_REQUEST",
		Message:    "File type not allowed",
		StatusCode: 400,
	}

	ErrNameAndFilenameRequired = &AppError{
		Code:       "INVALID_REQUEST",
		Message:    "Name and filename are required",
		StatusCode: 400,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_REQUEST",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 400,
	}

	ErrCameraInactive = &AppError{
		Code:       "CAMERA_INACTIVE",
		Message:    "Camera is not active",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "File not found",
		StatusCode: 404,
	}

	ErrCameraUnavailable = &AppError{
		Code:       "CAMERA_UNAVAILABLE",
		Message:    "Failed to open camera",
		StatusCode: 500,
	}

	ErrCaptureFailed = &AppError{
		Code:       "CAMERA_UNAVAILABLE",
		Message:    "Failed to capture image",
		StatusCode: 500,
	}

	ErrDescriptorUnavailable = &AppError{
		Code:       "DESCRIPTOR_UNAVAILABLE",
		Message:    "No face descriptor could be extracted from the image",
		StatusCode: 422,
	}

	ErrStorage = &AppError{
		Code:       "STORAGE_ERROR",
		Message:    "Storage operation failed",
		StatusCode: 500,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}
)
