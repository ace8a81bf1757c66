package status

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatch is returned when a lookup set matches no status in the table.
	ErrNoMatch = errors.New("no matching status")
	// ErrUnknownStatus is returned when two distinct, unknown statuses are paired.
	ErrUnknownStatus = errors.New("unknown status")
)

// UnknownStatusError carries the pair that could not be combined.
type UnknownStatusError struct {
	First  string
	Second string
}

func (e UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown status in pair (%q, %q)", e.First, e.Second)
}

// Is matches ErrUnknownStatus.
func (e UnknownStatusError) Is(target error) bool { return target == ErrUnknownStatus }

// Min returns the earliest status whose condition field is one of fields.
func (t *Table) Min(fields []string) (string, error) {
	if len(fields) > 0 {
		want := make(map[string]struct{}, len(fields))
		for _, f := range fields {
			want[f] = struct{}{}
		}
		for _, def := range t.defs {
			if def.ConditionField == "" {
				continue
			}
			if _, ok := want[def.ConditionField]; ok {
				return def.Status, nil
			}
		}
	}
	return "", fmt.Errorf("%w: condition fields %v", ErrNoMatch, fields)
}

// Max returns the known status with the largest order among statuses.
// Unknown names are skipped; among equal orders the later table row wins.
func (t *Table) Max(statuses []string) (string, error) {
	best := -1
	for _, name := range statuses {
		idx, ok := t.position[name]
		if !ok {
			continue
		}
		if best == -1 || t.defs[idx].Order > t.defs[best].Order ||
			(t.defs[idx].Order == t.defs[best].Order && idx > best) {
			best = idx
		}
	}
	if best == -1 {
		return "", fmt.Errorf("%w: statuses %v", ErrNoMatch, statuses)
	}
	return t.defs[best].Status, nil
}

// Pair combines two statuses: the earlier of two known statuses, the known
// one when only one is known, and the shared value when neither is known but
// both are equal (including two missing values).
func (t *Table) Pair(first, second string) (string, error) {
	i, okFirst := t.position[first]
	j, okSecond := t.position[second]
	switch {
	case okFirst && okSecond:
		if t.defs[j].Order < t.defs[i].Order {
			return second, nil
		}
		return first, nil
	case okFirst:
		return first, nil
	case okSecond:
		return second, nil
	case first == second:
		return first, nil
	default:
		return "", UnknownStatusError{First: first, Second: second}
	}
}

// Ascending compares a and b by order and returns -1, 0 or 1. Identical names
// compare equal; unknown names carry order -1 and sort before every known status.
func (t *Table) Ascending(a, b string) int {
	if a == b {
		return 0
	}
	oa, ob := t.Order(a), t.Order(b)
	switch {
	case oa > ob:
		return 1
	case oa < ob:
		return -1
	default:
		return 0
	}
}

// Descending is Ascending with the sign flipped.
func (t *Table) Descending(a, b string) int {
	return -t.Ascending(a, b)
}

// Next returns the status following name. It saturates at the last status
// and maps unknown names to the last status as well.
func (t *Table) Next(name string) string {
	if len(t.defs) == 0 {
		return ""
	}
	last := len(t.defs) - 1
	idx, ok := t.position[name]
	if !ok || idx >= last {
		return t.defs[last].Status
	}
	return t.defs[idx+1].Status
}
