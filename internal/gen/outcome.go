package gen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// Normalize converts a generation response into structured subtask
// descriptors. Structured responses pass through after a sanity check;
// freeform text is parsed as a JSON array, either verbatim or embedded
// in surrounding prose.
//
// Returns ErrUnparsableResponse when nothing usable can be extracted.
func Normalize(resp *Response) ([]domain.SubtaskDescriptor, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", maestroerrors.ErrUnparsableResponse)
	}

	if len(resp.Descriptors) > 0 {
		return checkDescriptors(resp.Descriptors)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", maestroerrors.ErrUnparsableResponse)
	}

	raw, err := decodeArray(text)
	if err != nil {
		embedded, ok := extractArray(text)
		if !ok {
			return nil, fmt.Errorf("%w: no JSON array in response", maestroerrors.ErrUnparsableResponse)
		}
		if raw, err = decodeArray(embedded); err != nil {
			return nil, fmt.Errorf("%w: embedded array is malformed", maestroerrors.ErrUnparsableResponse)
		}
	}

	descs := make([]domain.SubtaskDescriptor, 0, len(raw))
	for i, item := range raw {
		var desc domain.SubtaskDescriptor
		if err := decodeItem(item, &desc); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", maestroerrors.ErrUnparsableResponse, i, err)
		}
		descs = append(descs, desc)
	}

	return checkDescriptors(descs)
}

// checkDescriptors rejects descriptor lists with untitled entries.
func checkDescriptors(descs []domain.SubtaskDescriptor) ([]domain.SubtaskDescriptor, error) {
	for i, d := range descs {
		if strings.TrimSpace(d.Title) == "" {
			return nil, fmt.Errorf("%w: descriptor %d has no title", maestroerrors.ErrUnparsableResponse, i)
		}
	}
	return descs, nil
}

// decodeArray parses text as a JSON array of objects.
func decodeArray(text string) ([]map[string]any, error) {
	var raw []map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// decodeItem maps one parsed object onto a descriptor. Weak typing
// tolerates collaborators that quote numbers.
func decodeItem(item map[string]any, out *domain.SubtaskDescriptor) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(item)
}

// extractArray finds the first balanced top-level JSON array in text.
// Collaborators often wrap their output in prose or code fences; the
// scan skips over strings so brackets inside values do not confuse it.
func extractArray(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
