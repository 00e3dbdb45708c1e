package ir

import (
	"fmt"
	"strings"
)

// PathError reports a target path that cannot be walked: either a segment is
// empty, or an intermediate segment holds a non-object value.
type PathError struct {
	Path    string // full dot path
	Segment string // offending segment
	Index   int    // position of Segment within the path
	Found   string // kind of value found at Segment ("" for an empty segment)
}

func (e *PathError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("path %q: empty segment at position %d", e.Path, e.Index)
	}
	return fmt.Sprintf("path %q: segment %q holds %s, not an object", e.Path, e.Segment, e.Found)
}

// SplitPath splits a dot-separated target into segments.
// Empty paths and empty segments are rejected.
func SplitPath(path string) ([]string, error) {
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		if seg == "" {
			return nil, &PathError{Path: path, Segment: seg, Index: i}
		}
	}
	return segments, nil
}

// Walk resolves every segment of path except the last, creating empty
// objects for missing intermediates. It returns the parent object and the
// leaf key. An existing non-object value at an intermediate segment is never
// overwritten; Walk returns a *PathError instead.
//
// Walk mutates obj when it creates intermediates. Callers that need
// all-or-nothing semantics walk a Clone.
func (obj IRObject) Walk(path string) (IRObject, string, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, "", err
	}

	current := obj
	for i, seg := range segments[:len(segments)-1] {
		next, ok := current[seg]
		if !ok {
			created := IRObject{}
			current[seg] = created
			current = created
			continue
		}
		child, isObj := next.(IRObject)
		if !isObj {
			return nil, "", &PathError{Path: path, Segment: seg, Index: i, Found: KindOf(next)}
		}
		current = child
	}
	return current, segments[len(segments)-1], nil
}

// Lookup returns the value at path without creating anything.
// The boolean is false when any segment is missing or not traversable.
func (obj IRObject) Lookup(path string) (IRValue, bool) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, false
	}

	var current IRValue = obj
	for _, seg := range segments {
		o, ok := current.(IRObject)
		if !ok {
			return nil, false
		}
		current, ok = o[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
