package app

import (
	"errors"
	"fmt"
	"net/http"

	"chronicle/reorder/internal/gitrepo"
	"chronicle/reorder/internal/reorder"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var structural *reorder.StructuralError
	if errors.As(err, &structural) {
		return http.StatusConflict, structural.Code, structural.Error(), nil
	}
	if errors.Is(err, gitrepo.ErrDocumentNotFound) {
		return http.StatusNotFound, "DOCUMENT_NOT_FOUND", "Document not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
