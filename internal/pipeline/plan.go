package pipeline

import "strings"

// Steps lists the pipeline stages in execution order.
var Steps = []string{
	"InitializeStatus",
	"InitializePairs",
	"Activity",
	"Assay",
	"Document",
	"System",
	"TestItem",
	"Target",
}

// Plan renders Steps as a single arrow-separated line.
func Plan() string {
	return strings.Join(Steps, " -> ")
}
