// Package jsonpatch applies add/replace/remove operations to generic JSON
// trees (map[string]any, []any and scalars) without mutating the input.
package jsonpatch

import (
	"strconv"
	"strings"
)

// Segment is one step of a parsed path. Numeric is set when Key parses as a
// base-10 integer; whether it then addresses an array element or an object key
// depends on the container found at that step.
type Segment struct {
	Key     string
	Index   int
	Numeric bool
}

// Path is a parsed slash-delimited path. An empty Path addresses the root.
type Path []Segment

// appendKey is the RFC 6902 "end of array" token.
const appendKey = "-"

// ParsePath splits raw on "/" and drops empty segments, so "/a/0", "a/0" and
// "a//0" all parse to the same two segments.
func ParsePath(raw string) Path {
	parts := strings.Split(raw, "/")
	path := make(Path, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		seg := Segment{Key: p}
		if n, err := strconv.Atoi(p); err == nil {
			seg.Index = n
			seg.Numeric = true
		}
		path = append(path, seg)
	}
	return path
}

func (p Path) String() string {
	keys := make([]string, len(p))
	for i, s := range p {
		keys[i] = s.Key
	}
	return "/" + strings.Join(keys, "/")
}

// arrayIndex resolves seg against arr. Writes may address one past the end
// (or "-") to append; anything further out is rejected. Reads and removals
// must hit an existing element.
func arrayIndex(arr []any, seg Segment, write bool) (int, bool) {
	if write && seg.Key == appendKey {
		return len(arr), true
	}
	if !seg.Numeric || seg.Index < 0 {
		return 0, false
	}
	if seg.Index > len(arr) || (!write && seg.Index == len(arr)) {
		return 0, false
	}
	return seg.Index, true
}
