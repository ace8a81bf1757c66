// Package status holds the ordered status vocabulary and the algebra every
// classification stage uses to compare and combine status codes.
package status

import (
	"fmt"
	"sort"
)

// NullCondition marks a definition that answers for no condition field.
const NullCondition = "null"

// Definition is one row of the status vocabulary.
type Definition struct {
	Status         string `json:"status" yaml:"status"`
	ConditionField string `json:"condition_field" yaml:"condition_field"`
	ConditionValue string `json:"condition_value" yaml:"condition_value"`
	Order          int    `json:"order" yaml:"order"`
	Score          int    `json:"score" yaml:"score"`
}

// Mapped reports whether the definition answers for a boolean condition field.
func (d Definition) Mapped() bool {
	return d.ConditionValue != NullCondition && d.ConditionField != ""
}

// DuplicateStatusError is returned when the vocabulary repeats a status code.
type DuplicateStatusError struct {
	Status string
}

func (e DuplicateStatusError) Error() string {
	return fmt.Sprintf("status %q defined more than once", e.Status)
}

// Table is the immutable, order-sorted status vocabulary. It is built once per
// run and shared by reference; no method mutates it.
type Table struct {
	defs       []Definition
	position   map[string]int
	fields     []string
	fieldIndex map[string]int
}

// NewTable sorts defs by Order (ties keep their input position) and indexes them.
func NewTable(defs []Definition) (*Table, error) {
	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	t := &Table{
		defs:       sorted,
		position:   make(map[string]int, len(sorted)),
		fieldIndex: make(map[string]int, len(sorted)),
	}
	for i, def := range sorted {
		if _, dup := t.position[def.Status]; dup {
			return nil, DuplicateStatusError{Status: def.Status}
		}
		t.position[def.Status] = i
		if !def.Mapped() {
			continue
		}
		t.fields = append(t.fields, def.ConditionField)
		if _, seen := t.fieldIndex[def.ConditionField]; !seen {
			t.fieldIndex[def.ConditionField] = i
		}
	}
	return t, nil
}

// Len returns the number of statuses in the vocabulary.
func (t *Table) Len() int { return len(t.defs) }

// Statuses returns the status codes in order.
func (t *Table) Statuses() []string {
	out := make([]string, len(t.defs))
	for i, def := range t.defs {
		out[i] = def.Status
	}
	return out
}

// ConditionFields lists the mapped condition fields in status order.
func (t *Table) ConditionFields() []string {
	out := make([]string, len(t.fields))
	copy(out, t.fields)
	return out
}

// HasConditionField reports whether field maps to some status.
func (t *Table) HasConditionField(field string) bool {
	_, ok := t.fieldIndex[field]
	return ok
}

// StatusFor returns the earliest status mapped to field.
func (t *Table) StatusFor(field string) (string, bool) {
	idx, ok := t.fieldIndex[field]
	if !ok {
		return "", false
	}
	return t.defs[idx].Status, true
}

// Known reports whether name is part of the vocabulary.
func (t *Table) Known(name string) bool {
	_, ok := t.position[name]
	return ok
}

// GlobalMin returns the earliest status of the whole table, or "" when empty.
func (t *Table) GlobalMin() string {
	if len(t.defs) == 0 {
		return ""
	}
	return t.defs[0].Status
}

// Order returns the order of name, or -1 when unknown.
func (t *Table) Order(name string) int {
	idx, ok := t.position[name]
	if !ok {
		return -1
	}
	return t.defs[idx].Order
}

// Score returns the score of name, or -1 when unknown.
func (t *Table) Score(name string) int {
	idx, ok := t.position[name]
	if !ok {
		return -1
	}
	return t.defs[idx].Score
}
