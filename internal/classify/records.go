// Package classify assigns priority-ordered statuses to activities, combines
// them across activity pairs and rolls them up into the summary levels.
package classify

// NoIssueStatus is assigned to activities without any condition flag set.
const NoIssueStatus = "no_issue"

// ErrorStatus marks an activity whose initial status is more severe than the
// pairwise evidence supports. It is a data value, not a failure.
const ErrorStatus = "Error"

// Metrics holds the four summed measurement counts.
type Metrics struct {
	IndependentIC50    float64 `json:"independent_IC50"`
	NonIndependentIC50 float64 `json:"non_independent_IC50"`
	IndependentKi      float64 `json:"independent_Ki"`
	NonIndependentKi   float64 `json:"non_independent_Ki"`
}

// Add returns the element-wise sum of m and o.
func (m Metrics) Add(o Metrics) Metrics {
	return Metrics{
		IndependentIC50:    m.IndependentIC50 + o.IndependentIC50,
		NonIndependentIC50: m.NonIndependentIC50 + o.NonIndependentIC50,
		IndependentKi:      m.IndependentKi + o.IndependentKi,
		NonIndependentKi:   m.NonIndependentKi + o.NonIndependentKi,
	}
}

// Values returns the metrics in MetricColumns order.
func (m Metrics) Values() []float64 {
	return []float64{m.IndependentIC50, m.NonIndependentIC50, m.IndependentKi, m.NonIndependentKi}
}

// Set assigns the metric named by column; unknown columns are ignored.
func (m *Metrics) Set(column string, v float64) {
	switch column {
	case ColIndependentIC50:
		m.IndependentIC50 = v
	case ColNonIndependentIC50:
		m.NonIndependentIC50 = v
	case ColIndependentKi:
		m.IndependentKi = v
	case ColNonIndependentKi:
		m.NonIndependentKi = v
	}
}

// Activity is one measurement record. NoIssue and Init are filled by
// InitializeActivities; a caller-supplied NoIssue is trusted as-is.
type Activity struct {
	ID              string
	AssayID         string
	DocumentID      string
	TestItemID      string
	TargetID        string
	MeasurementType string
	Flags           map[string]bool
	Metrics         Metrics

	NoIssue *bool
	Init    string
}

// Pair links two activities describing the same measurement event.
type Pair struct {
	ID1             string
	ID2             string
	TestItemID      string
	TargetID        string
	MeasurementType string
	Metrics         Metrics

	Filtered1 string
	Filtered2 string
	Filtered  string
}

// UnifiedRecord is one pair endpoint merged with its activity's initial status.
type UnifiedRecord struct {
	ActivityID      string
	AssayID         string
	DocumentID      string
	TestItemID      string
	TargetID        string
	MeasurementType string
	Metrics         Metrics

	// Matched is false when the endpoint id has no activity row.
	Matched  bool
	NoIssue  bool
	Init     string
	New      string
	Filtered string
}
