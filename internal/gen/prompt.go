package gen

import (
	"fmt"
	"strings"
)

// buildPrompt renders the generation request as the collaborator
// prompt. The contract with the collaborator is plain: a short work
// description in, a JSON array of subtask objects out. Normalize
// tolerates prose around the array.
func buildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Split the following task into ")
	fmt.Fprintf(&b, "%d sequential subtasks.\n\n", req.Count)
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	if req.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", req.Description)
	}
	fmt.Fprintf(&b, "Effort score: %d (scale 1-5)\n\n", req.Effort)

	b.WriteString(`Respond with a JSON array of subtask objects. Each object has:
  "title"           (string, required)
  "description"     (string, optional)
  "priority"        (string, optional: high, medium, low)
  "effort"          (integer, optional: 1-5)
  "estimated_hours" (number, optional)

Order the array so each subtask builds on the previous one.
`)

	return b.String()
}
