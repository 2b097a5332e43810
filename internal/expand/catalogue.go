package expand

import (
	"fmt"

	"github.com/mrz1836/maestro/internal/domain"
)

// catalogue is the deterministic fallback used when the external
// collaborator is unavailable or its response cannot be parsed. The
// entries cover the phases of a generic engineering task in execution
// order; effort and hour figures are deliberately modest since fallback
// subtasks are placeholders for later refinement.
var catalogue = []domain.SubtaskDescriptor{
	{Title: "Analyze requirements", Description: "Clarify scope, inputs and acceptance criteria", Effort: 1, EstimatedHours: 2},
	{Title: "Design solution", Description: "Sketch the approach, interfaces and data flow", Effort: 2, EstimatedHours: 3},
	{Title: "Implement core logic", Description: "Build the primary behavior", Effort: 3, EstimatedHours: 6},
	{Title: "Build user-facing surface", Description: "Wire the feature into its entry points", Effort: 2, EstimatedHours: 4},
	{Title: "Handle data and persistence", Description: "Define storage, migrations and serialization", Effort: 2, EstimatedHours: 4},
	{Title: "Integrate and test", Description: "Connect the pieces and cover them with tests", Effort: 2, EstimatedHours: 4},
	{Title: "Review security", Description: "Check input handling, permissions and secrets", Effort: 1, EstimatedHours: 2},
	{Title: "Tune performance", Description: "Profile and address hot spots", Effort: 2, EstimatedHours: 3},
	{Title: "Write documentation", Description: "Document behavior, configuration and caveats", Effort: 1, EstimatedHours: 2},
	{Title: "Prepare deployment", Description: "Package, configure and ship", Effort: 1, EstimatedHours: 2},
}

// CatalogueSize is the number of distinct fallback entries.
const CatalogueSize = 10

// Fallback returns exactly n fallback descriptors. Requests beyond the
// catalogue wrap around with a pass number so titles stay unique.
func Fallback(n int) []domain.SubtaskDescriptor {
	if n <= 0 {
		return nil
	}

	out := make([]domain.SubtaskDescriptor, 0, n)
	for i := 0; i < n; i++ {
		entry := catalogue[i%len(catalogue)]
		if pass := i / len(catalogue); pass > 0 {
			entry.Title = fmt.Sprintf("%s (pass %d)", entry.Title, pass+1)
		}
		out = append(out, entry)
	}
	return out
}
