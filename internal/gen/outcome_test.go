package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// TestNormalize_StructuredPassThrough verifies structured responses are
// used as-is.
func TestNormalize_StructuredPassThrough(t *testing.T) {
	resp := &Response{Descriptors: []domain.SubtaskDescriptor{
		{Title: "design", Effort: 2},
		{Title: "build", Effort: 3},
	}}

	descs, err := Normalize(resp)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "design", descs[0].Title)
}

// TestNormalize_PlainJSONArray verifies a bare JSON array parses.
func TestNormalize_PlainJSONArray(t *testing.T) {
	resp := &Response{Text: `[
		{"title": "analyze inputs", "effort": 2, "estimated_hours": 4},
		{"title": "write parser", "priority": "high"}
	]`}

	descs, err := Normalize(resp)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "analyze inputs", descs[0].Title)
	assert.Equal(t, 2, descs[0].Effort)
	assert.InDelta(t, 4.0, descs[0].EstimatedHours, 0.001)
	assert.Equal(t, "high", descs[1].Priority)
}

// TestNormalize_EmbeddedArray verifies an array wrapped in prose or a
// code fence is extracted.
func TestNormalize_EmbeddedArray(t *testing.T) {
	resp := &Response{Text: "Here is the breakdown you asked for:\n\n```json\n" +
		`[{"title": "step [one]", "description": "includes ] in a string"}]` +
		"\n```\nLet me know if you need more detail."}

	descs, err := Normalize(resp)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "step [one]", descs[0].Title)
}

// TestNormalize_WeaklyTypedFields verifies quoted numbers decode.
func TestNormalize_WeaklyTypedFields(t *testing.T) {
	resp := &Response{Text: `[{"title": "sized", "effort": "3", "estimated_hours": "2.5"}]`}

	descs, err := Normalize(resp)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, 3, descs[0].Effort)
	assert.InDelta(t, 2.5, descs[0].EstimatedHours, 0.001)
}

// TestNormalize_Unparsable covers the rejection paths.
func TestNormalize_Unparsable(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
	}{
		{"nil response", nil},
		{"empty text", &Response{}},
		{"no array at all", &Response{Text: "I could not split this task."}},
		{"unbalanced array", &Response{Text: `here: [{"title": "x"}`}},
		{"malformed embedded array", &Response{Text: `result: [{"title": }] done`}},
		{"untitled structured entry", &Response{Descriptors: []domain.SubtaskDescriptor{{Title: "  "}}}},
		{"untitled parsed entry", &Response{Text: `[{"description": "no title"}]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.resp)
			require.ErrorIs(t, err, maestroerrors.ErrUnparsableResponse)
		})
	}
}
