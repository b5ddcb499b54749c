package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON           = "INVALID_JSON"
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodeProductNotFound       = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound         = "ORDER_NOT_FOUND"
	ErrCodeInvalidUser           = "INVALID_USER"
	ErrCodeInvalidProducts       = "INVALID_PRODUCTS"
	ErrCodeTotalMismatch         = "TOTAL_MISMATCH"
	ErrCodeDuplicateName         = "DUPLICATE_NAME"
	ErrCodeAlreadyArchived       = "ALREADY_ARCHIVED"
	ErrCodeProductInUse          = "PRODUCT_IN_USE"
	ErrCodeCodeGenerationFailed  = "CODE_GENERATION_FAILED"
	ErrCodeEnrichmentUnavailable = "ENRICHMENT_UNAVAILABLE"
	ErrCodeUnauthorised          = "UNAUTHORIZED"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// ErrorKind classifies a domain error for callers that only care about the
// broad category, such as the HTTP layer or the archive scheduler.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Domain errors for business logic
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on Code so that an error carrying a more specific message still
// satisfies errors.Is against the sentinel of the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: message}
}

// KindOf returns the kind of the first DomainError in err's chain, or
// KindInternal if there is none.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Common domain errors
var (
	ErrValidationFailed       = NewDomainError(KindValidation, ErrCodeValidationFailed, "Request validation failed")
	ErrProductNotFound        = NewDomainError(KindNotFound, ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound          = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrInvalidUser            = NewDomainError(KindValidation, ErrCodeInvalidUser, "User does not exist")
	ErrInvalidProducts        = NewDomainError(KindValidation, ErrCodeInvalidProducts, "One or more products not found")
	ErrTotalMismatch          = NewDomainError(KindValidation, ErrCodeTotalMismatch, "Total amount does not match the sum of product prices")
	ErrDuplicateName          = NewDomainError(KindConflict, ErrCodeDuplicateName, "A product with this name already exists")
	ErrProductAlreadyArchived = NewDomainError(KindConflict, ErrCodeAlreadyArchived, "Product is already archived")
	ErrProductInUse           = NewDomainError(KindConflict, ErrCodeProductInUse, "Product is referenced by one or more orders")
	ErrCodeGenerationFailed   = NewDomainError(KindTransient, ErrCodeCodeGenerationFailed, "Could not allocate a product code, try again")
	ErrEnrichmentUnavailable  = NewDomainError(KindTransient, ErrCodeEnrichmentUnavailable, "Product enrichment source is unavailable")
)
