package graph

import (
	"fmt"
	"strings"

	"github.com/nathoo/voicequest/types"
)

// ParseTarget converts an authored target string into a typed reference:
//
//	"#A.B"  absolute, from the root
//	".A.B"  child path of the defining node
//	"A.B"   path from the defining node's parent (a sibling, or inside one)
//
// Parsing happens once while content is loaded; Build resolves the result.
func ParseTarget(raw string) (types.TargetRef, error) {
	ref := types.TargetRef{Raw: raw}
	rest := raw
	switch {
	case strings.HasPrefix(raw, "#"):
		ref.Kind = types.TargetAbsolute
		rest = raw[1:]
	case strings.HasPrefix(raw, "."):
		ref.Kind = types.TargetChild
		rest = raw[1:]
	default:
		ref.Kind = types.TargetSibling
	}
	if rest == "" {
		return ref, fmt.Errorf("target %q: empty path", raw)
	}
	for _, seg := range strings.Split(rest, ".") {
		if seg == "" || strings.ContainsAny(seg, "# \t") {
			return ref, fmt.Errorf("target %q: malformed segment %q", raw, seg)
		}
		ref.Path = append(ref.Path, seg)
	}
	return ref, nil
}

// MustTarget is ParseTarget for targets known to be well-formed.
func MustTarget(raw string) types.TargetRef {
	ref, err := ParseTarget(raw)
	if err != nil {
		panic(err)
	}
	return ref
}
