// Package api provides HTTP handlers and routing for the BloodLink REST API.
package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/domain"
)

// APIResponse is the standard response envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError represents an error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes for consistent API responses.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
)

// Success sends a successful JSON response with the given data.
func Success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessWithStatus sends a successful JSON response with a custom status code.
func SuccessWithStatus(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// Created sends a 201 Created response with the given data.
func Created(c *fiber.Ctx, data interface{}) error {
	return SuccessWithStatus(c, fiber.StatusCreated, data)
}

// NoContent sends a 204 No Content response.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Error sends an error JSON response with the given status code.
func Error(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, ErrCodeBadRequest, message)
}

// ValidationError sends a 400 Bad Request error for validation failures.
func ValidationError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, ErrCodeValidationFailed, message)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict sends a 409 Conflict error response.
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, ErrCodeConflict, message)
}

// InternalError sends a 500 Internal Server Error response.
func InternalError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, ErrCodeInternalError, message)
}

// validationErrors are domain sentinels that map to 400 VALIDATION_FAILED.
var validationErrors = []error{
	domain.ErrEmptyRequesterID,
	domain.ErrInvalidBloodType,
	domain.ErrInvalidUrgency,
	domain.ErrMissingLocation,
	domain.ErrInvalidLocation,
	domain.ErrRadiusOutOfRange,
	domain.ErrDescriptionTooLong,
	domain.ErrInvalidResponseStatus,
}

// DomainError maps a domain sentinel to the right HTTP error response.
// Unrecognized errors get a 500 with the fallback message; the caller is
// expected to have logged them already.
func DomainError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrAlertNotFound):
		return NotFound(c, "alert not found")
	case errors.Is(err, domain.ErrActorNotFound):
		return NotFound(c, "actor not found")
	case errors.Is(err, domain.ErrNotificationNotFound):
		return NotFound(c, "notification not found")
	case errors.Is(err, domain.ErrAlertNotActive):
		return Conflict(c, err.Error())
	case errors.Is(err, domain.ErrIncompatibleBloodType):
		return Conflict(c, err.Error())
	case errors.Is(err, domain.ErrAlreadyPropagated):
		return Conflict(c, err.Error())
	case errors.Is(err, domain.ErrRoleNotAllowed):
		return Forbidden(c, err.Error())
	}
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return ValidationError(c, err.Error())
		}
	}
	return InternalError(c, fallback)
}
