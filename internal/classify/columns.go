package classify

// Canonical column names shared by every input and output table.
const (
	ColActivityID      = "activity_chembl_id"
	ColActivityID1     = "activity_chembl_id1"
	ColActivityID2     = "activity_chembl_id2"
	ColAssayID         = "assay_chembl_id"
	ColDocumentID      = "document_chembl_id"
	ColTestItemID      = "testitem_chembl_id"
	ColTargetID        = "target_chembl_id"
	ColMeasurementType = "measurement_type"
	ColSystemID        = "system_id"

	ColIndependentIC50    = "independent_IC50"
	ColNonIndependentIC50 = "non_independent_IC50"
	ColIndependentKi      = "independent_Ki"
	ColNonIndependentKi   = "non_independent_Ki"

	ColFiltered     = "Filtered"
	ColFiltered1    = "Filtered1"
	ColFiltered2    = "Filtered2"
	ColFilteredInit = "Filtered.init"
	ColFilteredNew  = "Filtered.new"
	ColNoIssue      = "no_issue"
)

// MetricColumns lists the four summed metrics in output order.
var MetricColumns = []string{
	ColIndependentIC50,
	ColNonIndependentIC50,
	ColIndependentKi,
	ColNonIndependentKi,
}

// ConditionFlags is the fixed set of per-activity boolean condition flags.
var ConditionFlags = []string{
	"high_citation_rate",
	"unicellular_organism",
	"review",
	"rounded_data_citation",
	"shuffled_assay",
	"higly_correlated_assay",
	"exact_data_citation",
	"multmol_assay",
	"multifunctional_enzyme",
	"unknown_chirality",
}

// ColumnAlias pairs a canonical column with the legacy names probed, in order,
// when the canonical one is absent.
type ColumnAlias struct {
	Canonical string
	Aliases   []string
}

// ColumnAliases is consulted once per table by NormalizeColumns.
var ColumnAliases = []ColumnAlias{
	{Canonical: ColActivityID, Aliases: []string{"activity_id"}},
	{Canonical: ColActivityID1, Aliases: []string{"activity_id1"}},
	{Canonical: ColActivityID2, Aliases: []string{"activity_id2"}},
	{Canonical: ColAssayID, Aliases: []string{"assay_id"}},
	{Canonical: ColDocumentID, Aliases: []string{"document_id"}},
	{Canonical: ColTestItemID, Aliases: []string{"molecule_chembl_id", "test_item.id", "testitem_id"}},
	{Canonical: ColTargetID, Aliases: []string{"target_id"}},
	{Canonical: ColMeasurementType, Aliases: []string{"mesurement_type", "standard_type", "measurement_type_id"}},
}

// NormalizeColumns returns a copy of header with legacy names renamed to their
// canonical form. A canonical column already present is left alone, so calling
// it on a normalized header is a no-op.
func NormalizeColumns(header []string) []string {
	out := make([]string, len(header))
	copy(out, header)
	pos := make(map[string]int, len(out))
	for i, name := range out {
		if _, seen := pos[name]; !seen {
			pos[name] = i
		}
	}
	for _, alias := range ColumnAliases {
		if _, ok := pos[alias.Canonical]; ok {
			continue
		}
		for _, legacy := range alias.Aliases {
			i, ok := pos[legacy]
			if !ok {
				continue
			}
			out[i] = alias.Canonical
			delete(pos, legacy)
			pos[alias.Canonical] = i
			break
		}
	}
	return out
}
