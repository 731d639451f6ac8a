package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures so transports can map them
// without inspecting messages.
type ErrorKind string

const (
	KindLocked           ErrorKind = "locked"
	KindInvalidStage     ErrorKind = "invalid_stage"
	KindInvalidStatus    ErrorKind = "invalid_status"
	KindValidation       ErrorKind = "validation"
	KindPermission       ErrorKind = "permission"
	KindInvalidReason    ErrorKind = "invalid_reason"
	KindPastDate         ErrorKind = "past_date"
	KindNotFound         ErrorKind = "not_found"
	KindInvalidReference ErrorKind = "invalid_reference"
	KindConflict         ErrorKind = "conflict"
	KindInternal         ErrorKind = "internal"
)

// Validation sub-kinds
const (
	CodePIRequired      = "pi_required"
	CodePIRequiredFirst = "pi_required_first"
	CodeInvoiceRequired = "invoice_required"
	CodeInvoiceLength   = "invoice_length"
	CodeInvoicePrefix   = "invoice_prefix"
	CodeRequiredField   = "required_field"
)

// Error is a failure that names the violated rule.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrLocked) works
// for every locked failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrLocked           = &Error{Kind: KindLocked, Message: "enquiry is locked"}
	ErrInvalidStage     = &Error{Kind: KindInvalidStage, Message: "invalid stage"}
	ErrInvalidStatus    = &Error{Kind: KindInvalidStatus, Message: "invalid status"}
	ErrValidation       = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrPermissionDenied = &Error{Kind: KindPermission, Message: "permission denied"}
	ErrInvalidReason    = &Error{Kind: KindInvalidReason, Message: "invalid reason"}
	ErrPastDate         = &Error{Kind: KindPastDate, Message: "date is in the past"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrInvalidReference = &Error{Kind: KindInvalidReference, Message: "invalid references"}
	ErrConflict         = &Error{Kind: KindConflict, Message: "resource conflict"}
)

// Messages shown to users
const (
	MsgLocked           = "This enquiry is locked and cannot be modified after fulfillment."
	MsgPIRequired       = "Proforma Invoice Number is required for Proforma Invoice Sent"
	MsgPIRequiredFirst  = "Enter PI first. Invoice Number can only be entered after Proforma Invoice (PI) is created."
	MsgInvoiceRequired  = "Invoice Number is required for Invoice Sent"
	MsgInvoiceLength    = "Invoice Number must be 10 characters long when stage is 'Invoice Sent'."
	MsgInvoicePrefix    = "Invoice Number must start with 'INV' when stage is 'Invoice Sent'."
	MsgInvalidReason    = "Invalid reason selected"
	MsgInvalidReference = "Could not save the enquiry due to invalid references. Please review lead source, category, subcategory and assignee."
	MsgPastDate         = "Follow-up date cannot be in the past."
)

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func lockedError() *Error {
	return newError(KindLocked, "", MsgLocked)
}

func validationError(code, message string) *Error {
	return newError(KindValidation, code, message)
}

func notFound(what string) *Error {
	return newError(KindNotFound, "", what+" not found")
}

func permissionDenied(message string) *Error {
	return newError(KindPermission, "", message)
}

func internalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// CodeOf returns the validation sub-kind of err, if any
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// MessageOf returns the user facing message of err. Foreign errors get a
// generic message so storage details never leak.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Kind != KindInternal {
		return se.Message
	}
	return "An unexpected error occurred"
}
