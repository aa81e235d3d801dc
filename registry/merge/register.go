// Package merge applies normalized rows to the committed dataset with
// field-level last-writer-wins conflict resolution. Every mutable field is an
// explicit {value, updatedAt} register and the merge of two registers is a
// pure function, so applying a fixed set of rows converges to the same state
// in any order: newer timestamps win, ties keep the stored value.
package merge

import "time"

// Register is a last-writer-wins register for a single field.
type Register[T comparable] struct {
	value     T
	updatedAt time.Time
	set       bool
}

// Value returns the current field value.
func (r Register[T]) Value() T { return r.value }

// UpdatedAt returns the timestamp of the write that produced the value.
func (r Register[T]) UpdatedAt() time.Time { return r.updatedAt }

// merge folds an incoming write into the register and reports whether the
// visible value changed. An unset register adopts any write. A set register
// adopts only strictly newer writes; an equal timestamp keeps the stored
// value so re-applying the same feed is a no-op regardless of arrival order.
func (r *Register[T]) merge(value T, at time.Time) bool {
	if r.set && !at.After(r.updatedAt) {
		return false
	}
	changed := !r.set || r.value != value
	r.value = value
	r.updatedAt = at
	r.set = true
	return changed
}
