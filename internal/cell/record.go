package cell

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Record is the plain key/value record produced by evaluating a code cell.
type Record map[string]cty.Value

// Merge performs an in-order shallow merge of records. Later records win on
// key collisions. The reserved DefaultExport key is never merged.
func Merge(records ...Record) Record {
	out := make(Record)
	for _, r := range records {
		for k, v := range r {
			if k == DefaultExport {
				continue
			}
			out[k] = v
		}
	}
	return out
}

// Keys returns the record keys in ascending order.
func (r Record) Keys() []string {
	return SortedKeys(r)
}

// Object returns the record as a cty object value.
func (r Record) Object() cty.Value {
	if len(r) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(map[string]cty.Value(r))
}

// RecordFromObject converts an object or map value into a Record. Null values
// produce a nil record.
func RecordFromObject(v cty.Value) (Record, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("record value is not known")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("record must be an object, got %s", ty.FriendlyName())
	}
	out := make(Record)
	for it := v.ElementIterator(); it.Next(); {
		k, val := it.Element()
		out[k.AsString()] = val
	}
	return out, nil
}

// Equal reports whether two records hold the same keys with equal values.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok || !v.RawEquals(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON renders every value with cty's JSON encoding.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r))
	for k, v := range r {
		raw, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", k, err)
		}
		out[k] = raw
	}
	return json.Marshal(out)
}
