package types

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Patch is a partial update decoded from JSON. It distinguishes three
// states per field: absent (leave the column alone), JSON null (clear
// the column), and a value (set the column). A plain struct cannot
// represent the first two, so the patch keeps raw messages keyed by
// column name.
type Patch struct {
	fields map[string]json.RawMessage
}

// ParsePatch decodes body into a patch restricted to the allowed column
// names. Unknown keys are an error; a partial update that silently
// drops a field would corrupt replay.
func ParsePatch(body []byte, allowed []string) (*Patch, error) {
	raw := map[string]json.RawMessage{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, WrapInvalid("malformed patch: %v", err)
		}
	}
	ok := make(map[string]bool, len(allowed))
	for _, col := range allowed {
		ok[col] = true
	}
	for key := range raw {
		if !ok[key] {
			return nil, WrapInvalid("patch field %q is not updatable", key)
		}
	}
	return &Patch{fields: raw}, nil
}

// MarshalJSON renders the patch back to the JSON object it was parsed
// from, preserving explicit nulls. The trail writer relies on this.
func (p *Patch) MarshalJSON() ([]byte, error) {
	if len(p.fields) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(p.fields)
}

// Empty reports whether the patch touches no fields.
func (p *Patch) Empty() bool { return len(p.fields) == 0 }

// Fields returns the touched column names in sorted order, so the
// generated SQL is identical across runs.
func (p *Patch) Fields() []string {
	keys := make([]string, 0, len(p.fields))
	for key := range p.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether the patch touches the named field.
func (p *Patch) Has(field string) bool {
	_, ok := p.fields[field]
	return ok
}

// Value returns the SQL value for a touched field: nil when the patch
// carries JSON null, otherwise the decoded string or number. Non-scalar
// values are rejected.
func (p *Patch) Value(field string) (any, error) {
	raw, ok := p.fields[field]
	if !ok {
		return nil, WrapInvalid("patch has no field %q", field)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	return nil, WrapInvalid("patch field %q is not a scalar", field)
}

// String returns the field as a string, treating null and absent as "".
func (p *Patch) String(field string) (string, error) {
	v, err := p.Value(field)
	if err != nil || v == nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", WrapInvalid("patch field %q is not a string", field)
	}
	return s, nil
}
