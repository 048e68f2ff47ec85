package jsonpatch

import (
	"bytes"
	"encoding/json"
)

// ToTree converts v into its generic JSON form.
func ToTree(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// FromTree decodes a generic JSON tree into dst. Fields dst does not declare
// are rejected rather than silently dropped.
func FromTree(tree any, dst any) error {
	b, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
