package attribution

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Value is a query parameter value: a scalar or an ordered sequence of
// scalars. A key accumulates a sequence when different values are observed
// for it across merges; observation order is preserved.
//
// JSON round-trips keep the stored shape compact: a single-element Value
// encodes as a plain string, anything longer as an array.
type Value []string

// Scalar creates a single-element Value.
func Scalar(v string) Value { return Value{v} }

// Sequence creates a multi-element Value.
func Sequence(vs ...string) Value { return Value(vs) }

// IsScalar reports whether the value holds exactly one element.
func (v Value) IsScalar() bool { return len(v) == 1 }

// First returns the earliest observed element, or "" when empty.
func (v Value) First() string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Last returns the latest observed element, or "" when empty.
func (v Value) Last() string {
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}

// Merge folds a newly observed value into the existing one:
// absent -> taken as-is; sequence -> appended; scalar vs different scalar ->
// two-element sequence; re-declaring the identical scalar -> no-op.
func (v Value) Merge(incoming Value) Value {
	if len(v) == 0 {
		return incoming
	}
	if len(incoming) == 0 {
		return v
	}
	if v.IsScalar() && incoming.IsScalar() && v[0] == incoming[0] {
		return v
	}
	out := make(Value, 0, len(v)+len(incoming))
	out = append(out, v...)
	out = append(out, incoming...)
	return out
}

// MarshalJSON encodes a scalar as a bare string and a sequence as an array.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsScalar() {
		return json.Marshal(v[0])
	}
	return json.Marshal([]string(v))
}

// UnmarshalJSON accepts either shape.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Value{s}
		return nil
	}
	var seq []string
	if err := json.Unmarshal(data, &seq); err != nil {
		return eris.Wrap(err, "attribution: value is neither string nor array")
	}
	*v = Value(seq)
	return nil
}

// MergeMaps folds every key of incoming into base, returning a new map.
func MergeMaps(base, incoming map[string]Value) map[string]Value {
	out := make(map[string]Value, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}
	for k, iv := range incoming {
		out[k] = out[k].Merge(iv)
	}
	return out
}
