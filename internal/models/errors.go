package models

import "errors"

var ErrNotFound = errors.New("requested resource not found")
var ErrForbidden = errors.New("user does not have permission to access this resource")
var ErrConflict = errors.New("resource conflict, item already exists")
var ErrInvalidToken = errors.New("token not found or expired")

// ErrInvalidTransition indicates a status update that is not the immediate
// successor of the order's current status on the happy path.
var ErrInvalidTransition = errors.New("status transition not allowed from current status")

// ErrOTPRequired indicates an attempt to mark an order delivered through the
// plain status endpoint instead of OTP verification.
var ErrOTPRequired = errors.New("delivery confirmation requires OTP verification")

var ErrOTPExpired = errors.New("delivery code expired or not issued")
var ErrOTPMismatch = errors.New("delivery code does not match")

// ErrAgentBusy indicates the agent tried to go offline while an active
// (picked up, undelivered) trip is assigned to them.
var ErrAgentBusy = errors.New("agent has an active delivery in progress")
