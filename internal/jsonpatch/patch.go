package jsonpatch

import (
	"github.com/aprendu/aprendu-backend/internal/models"
)

// Apply runs ops against root strictly in order and returns the resulting
// tree. A later op may silently overwrite an earlier one's target. Unknown op
// verbs are skipped. root itself is never modified.
func Apply(root any, ops []models.PatchOperation) any {
	for _, op := range ops {
		path := ParsePath(op.Path)
		switch op.Op {
		case models.PatchAdd, models.PatchReplace:
			root = Set(root, path, models.CloneValue(op.Value))
		case models.PatchRemove:
			root = Remove(root, path)
		}
	}
	return root
}

// Set returns a copy of root with value stored at path. Every container on
// the path is copied; siblings are shared with root. Missing intermediates are
// created as empty objects, never arrays. An empty path replaces the root.
func Set(root any, path Path, value any) any {
	if len(path) == 0 {
		return value
	}
	return setAt(root, path, value)
}

func setAt(node any, path Path, value any) any {
	if arr, ok := node.([]any); ok {
		return setInArray(arr, path, value)
	}
	return setInObject(node, path, value)
}

func setInObject(node any, path Path, value any) any {
	seg, rest := path[0], path[1:]
	obj, _ := node.(map[string]any)
	out := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		out[k] = v
	}
	if len(rest) == 0 {
		out[seg.Key] = value
	} else {
		out[seg.Key] = setAt(obj[seg.Key], rest, value)
	}
	return out
}

func setInArray(arr []any, path Path, value any) any {
	seg, rest := path[0], path[1:]
	idx, ok := arrayIndex(arr, seg, true)
	if !ok {
		return arr
	}
	size := len(arr)
	if idx == size {
		size++
	}
	out := make([]any, size)
	copy(out, arr)
	if len(rest) == 0 {
		out[idx] = value
	} else {
		out[idx] = setAt(out[idx], rest, value)
	}
	return out
}

// Remove returns a copy of root without the element at path. Object keys are
// deleted and array elements are spliced out, so no hole is left behind.
// Missing targets and the empty path leave root as it is.
func Remove(root any, path Path) any {
	if len(path) == 0 {
		return root
	}
	out, _ := removeAt(root, path)
	return out
}

func removeAt(node any, path Path) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		return removeFromObject(n, path)
	case []any:
		return removeFromArray(n, path)
	default:
		return node, false
	}
}

func removeFromObject(obj map[string]any, path Path) (any, bool) {
	seg, rest := path[0], path[1:]
	child, ok := obj[seg.Key]
	if !ok {
		return obj, false
	}
	var next any
	if len(rest) > 0 {
		var changed bool
		if next, changed = removeAt(child, rest); !changed {
			return obj, false
		}
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	if len(rest) == 0 {
		delete(out, seg.Key)
	} else {
		out[seg.Key] = next
	}
	return out, true
}

func removeFromArray(arr []any, path Path) (any, bool) {
	seg, rest := path[0], path[1:]
	idx, ok := arrayIndex(arr, seg, false)
	if !ok {
		return arr, false
	}
	if len(rest) == 0 {
		out := make([]any, 0, len(arr)-1)
		out = append(out, arr[:idx]...)
		return append(out, arr[idx+1:]...), true
	}
	next, changed := removeAt(arr[idx], rest)
	if !changed {
		return arr, false
	}
	out := make([]any, len(arr))
	copy(out, arr)
	out[idx] = next
	return out, true
}

// Get returns the value stored at path, if any.
func Get(root any, path Path) (any, bool) {
	node := root
	for _, seg := range path {
		switch n := node.(type) {
		case map[string]any:
			child, ok := n[seg.Key]
			if !ok {
				return nil, false
			}
			node = child
		case []any:
			idx, ok := arrayIndex(n, seg, false)
			if !ok {
				return nil, false
			}
			node = n[idx]
		default:
			return nil, false
		}
	}
	return node, true
}
