// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package remote

import (
	"errors"
	"fmt"
)

// PlatformError is an error response from the platform API.
type PlatformError struct {
	// Code is the machine-readable error code, e.g. "unauthorized".
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Detail carries the message on endpoints that use the bare
	// {"detail": ...} error shape. Normalized into Message after
	// decoding.
	Detail string `json:"detail"`

	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *PlatformError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform: %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform: HTTP %d: %s", e.StatusCode, e.Message)
}

// Common error codes returned by the platform API.
const (
	CodeUnauthorized   = "unauthorized"
	CodeNotFound       = "not_found"
	CodeInvalidPayload = "invalid_payload"
	CodeQuotaExceeded  = "quota_exceeded"
)

// IsPlatformError checks whether err is a PlatformError with the
// given code.
func IsPlatformError(err error, code string) bool {
	var platformError *PlatformError
	if errors.As(err, &platformError) {
		return platformError.Code == code
	}
	return false
}

// IsNotFound checks whether err is the platform saying the resource
// does not exist, by code or by HTTP 404.
func IsNotFound(err error) bool {
	var platformError *PlatformError
	if errors.As(err, &platformError) {
		return platformError.Code == CodeNotFound || platformError.StatusCode == 404
	}
	return false
}
