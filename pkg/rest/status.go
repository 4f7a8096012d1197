package rest

import "slices"

// StatusPredicate maps an HTTP status code to accept/reject.
type StatusPredicate func(status int) bool

// DefaultValidateStatus accepts 2xx status codes.
func DefaultValidateStatus(status int) bool {
	return status >= 200 && status < 300
}

// Or returns a predicate accepting a status accepted by a or b.
// A nil predicate rejects everything.
func Or(a, b StatusPredicate) StatusPredicate {
	return func(status int) bool {
		return (a != nil && a(status)) || (b != nil && b(status))
	}
}

// StatusIn returns a predicate accepting the listed status codes.
// The statuses are copied, later modification of the slice has no effect.
func StatusIn(statuses ...int) StatusPredicate {
	allowed := slices.Clone(statuses)
	return func(status int) bool {
		return slices.Contains(allowed, status)
	}
}
