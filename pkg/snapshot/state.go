package snapshot

import (
	"fmt"
	"io"
	"strings"

	"github.com/cbodonnell/statexfer/pkg/schema"
)

// Object is one decoded save file block.
type Object struct {
	Name          string            `json:"name"`
	Properties    []schema.Property `json:"properties"`
	Warnings      []string          `json:"warnings,omitempty"`
	ExpectedBytes int64             `json:"expectedBytes"`
	ConsumedBytes int64             `json:"consumedBytes"`
	DebugInfo     string            `json:"debugInfo"`
}

// Match reports whether the decoded size agreed with the declared size.
func (o Object) Match() bool {
	return o.ExpectedBytes == o.ConsumedBytes
}

// State is the decoded content of one snapshot.
type State struct {
	Objects []Object `json:"objects"`
}

// Copy returns a deep copy of s.
func (s *State) Copy() *State {
	if s == nil {
		return nil
	}
	out := &State{Objects: make([]Object, len(s.Objects))}
	for i, o := range s.Objects {
		o.Properties = append([]schema.Property(nil), o.Properties...)
		o.Warnings = append([]string(nil), o.Warnings...)
		out.Objects[i] = o
	}
	return out
}

// WriteText writes every object name followed by its properties, one per
// line, with a blank line after each object.
func (s *State) WriteText(w io.Writer) error {
	for _, o := range s.Objects {
		if _, err := fmt.Fprintf(w, "%s\n", o.Name); err != nil {
			return err
		}
		for _, p := range o.Properties {
			if _, err := fmt.Fprintf(w, "  %s: %s\n", p.Name, p.Value); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Text returns the WriteText rendering of s.
func (s *State) Text() string {
	var sb strings.Builder
	_ = s.WriteText(&sb)
	return sb.String()
}

// DebugInfo renders the size comparison and warnings of one object.
func DebugInfo(expected, consumed int64, warnings []string) string {
	match := "yes"
	if expected != consumed {
		match = "NO"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Expected block bytes: %d\nProcessed bytes: %d\nMatch: %s", expected, consumed, match)
	if len(warnings) > 0 {
		sb.WriteString("\nWarnings:")
		for _, w := range warnings {
			sb.WriteString("\n- ")
			sb.WriteString(w)
		}
	}
	return sb.String()
}
