package domain

import "homebase/internal/phone"

// Outcome is the result of one dispatch attempt for one number.
type Outcome struct {
	Number phone.Number
	OK     bool
	Reason string // short human-readable reason, never a stack trace
}
