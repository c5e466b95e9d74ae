package norms

import (
	"errors"
	"net/http"
)

// Domain errors for norm operations.
var (
	ErrNotFound          = errors.New("norm not found")
	ErrDuplicate         = errors.New("norm already registered")
	ErrEmptyText         = errors.New("raw text must not be empty")
	ErrInvalidIdentity   = errors.New("norm identity requires kind, number, and year")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMalformed         = errors.New("segmentation could not establish a consistent hierarchy")
)

// MapHTTPStatus maps norm domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrEmptyText) || errors.Is(err, ErrInvalidIdentity) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrInvalidTransition) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrMalformed) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
