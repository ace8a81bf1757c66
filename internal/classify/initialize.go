package classify

import (
	"errors"
	"fmt"

	"assaycore/internal/status"
)

// Fallback selects what happens when an activity has flags set but none of
// them maps to a known status.
type Fallback string

const (
	// FallbackGlobalMin assigns the earliest status of the table.
	FallbackGlobalMin Fallback = "GLOBAL_MIN"
	// FallbackError fails the run with ErrNoActiveStatus.
	FallbackError Fallback = "ERROR"
)

// Valid reports whether f is a known policy.
func (f Fallback) Valid() bool {
	return f == FallbackGlobalMin || f == FallbackError
}

// ErrNoActiveStatus is returned under FallbackError for unmappable activities.
var ErrNoActiveStatus = errors.New("no active status")

// NoActiveStatusError names the activity that could not be classified.
type NoActiveStatusError struct {
	ActivityID string
}

func (e NoActiveStatusError) Error() string {
	return fmt.Sprintf("activity %s: no active condition flag maps to a status", e.ActivityID)
}

// Is matches ErrNoActiveStatus.
func (e NoActiveStatusError) Is(target error) bool { return target == ErrNoActiveStatus }

// ComputeNoIssue reports whether none of the ConditionFlags of a is set.
// Other entries of a.Flags are ignored.
func ComputeNoIssue(a Activity) bool {
	for _, flag := range ConditionFlags {
		if a.Flags[flag] {
			return false
		}
	}
	return true
}

// ActiveFields returns the set ConditionFlags of a that the table maps.
func ActiveFields(tbl *status.Table, a Activity) []string {
	var active []string
	for _, flag := range ConditionFlags {
		if a.Flags[flag] && tbl.HasConditionField(flag) {
			active = append(active, flag)
		}
	}
	return active
}

// InitialStatus computes no_issue and Filtered.init for a single activity.
func InitialStatus(tbl *status.Table, a Activity, fallback Fallback) (bool, string, error) {
	noIssue := ComputeNoIssue(a)
	if a.NoIssue != nil {
		noIssue = *a.NoIssue
	}
	if noIssue {
		return true, NoIssueStatus, nil
	}
	active := ActiveFields(tbl, a)
	if len(active) > 0 {
		init, err := tbl.Min(active)
		if err != nil {
			return false, "", fmt.Errorf("activity %s: %w", a.ID, err)
		}
		return false, init, nil
	}
	if fallback == FallbackError {
		return false, "", NoActiveStatusError{ActivityID: a.ID}
	}
	return false, tbl.GlobalMin(), nil
}

// InitializeActivities returns copies of acts with NoIssue and Init set.
func InitializeActivities(tbl *status.Table, acts []Activity, fallback Fallback) ([]Activity, error) {
	out := make([]Activity, len(acts))
	for i, a := range acts {
		noIssue, init, err := InitialStatus(tbl, a, fallback)
		if err != nil {
			return nil, err
		}
		a.NoIssue = &noIssue
		a.Init = init
		out[i] = a
	}
	return out, nil
}
