package models

// PatchOp is the verb of a patch operation.
type PatchOp string

const (
	PatchAdd     PatchOp = "add"
	PatchReplace PatchOp = "replace"
	PatchRemove  PatchOp = "remove"
)

// PatchOperation is an RFC 6902 style instruction. Value is an opaque JSON
// value (maps, slices, strings, float64, bool or nil) and is ignored for remove.
type PatchOperation struct {
	Op    PatchOp `json:"op" yaml:"op" validate:"required,oneof=add replace remove"`
	Path  string  `json:"path" yaml:"path"`
	Value any     `json:"value,omitempty" yaml:"value,omitempty"`
}
