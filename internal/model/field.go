package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type FieldKind int

const (
	FieldAbsent FieldKind = iota
	FieldScalar
	FieldSequence
	FieldMapping
)

// MapEntry keeps mapping members in document order so flattening stays
// deterministic.
type MapEntry struct {
	Key   string
	Value FieldValue
}

// FieldValue holds an extracted field whose shape is not guaranteed: it may be
// missing, a single string, a list or a nested object.
type FieldValue struct {
	kind    FieldKind
	scalar  string
	items   []FieldValue
	entries []MapEntry
}

func Scalar(s string) FieldValue {
	return FieldValue{kind: FieldScalar, scalar: s}
}

func Sequence(items ...FieldValue) FieldValue {
	return FieldValue{kind: FieldSequence, items: items}
}

func Mapping(entries ...MapEntry) FieldValue {
	return FieldValue{kind: FieldMapping, entries: entries}
}

// List builds a sequence of scalars.
func List(values ...string) FieldValue {
	items := make([]FieldValue, 0, len(values))
	for _, v := range values {
		items = append(items, Scalar(v))
	}
	return Sequence(items...)
}

func (v FieldValue) Kind() FieldKind {
	return v.kind
}

func (v FieldValue) IsZero() bool {
	return v.kind == FieldAbsent
}

// Flatten reduces any shape to a single space-joined string. Blank members of
// sequences and mappings are dropped.
func (v FieldValue) Flatten() string {
	switch v.kind {
	case FieldScalar:
		return v.scalar
	case FieldSequence:
		parts := make([]string, 0, len(v.items))
		for _, item := range v.items {
			flat := item.Flatten()
			if strings.TrimSpace(flat) == "" {
				continue
			}
			parts = append(parts, flat)
		}
		return strings.Join(parts, " ")
	case FieldMapping:
		parts := make([]string, 0, len(v.entries))
		for _, entry := range v.entries {
			flat := entry.Value.Flatten()
			if strings.TrimSpace(flat) == "" {
				continue
			}
			parts = append(parts, flat)
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Strings returns the value as a list: a scalar becomes a single element and
// every sequence member or mapping value is flattened to one element.
func (v FieldValue) Strings() []string {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	switch v.kind {
	case FieldScalar:
		add(v.scalar)
	case FieldSequence:
		for _, item := range v.items {
			add(item.Flatten())
		}
	case FieldMapping:
		for _, entry := range v.entries {
			add(entry.Value.Flatten())
		}
	}
	return out
}

// Text is the trimmed flattened value.
func (v FieldValue) Text() string {
	return strings.TrimSpace(v.Flatten())
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeFieldValue(dec)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case FieldScalar:
		return json.Marshal(v.scalar)
	case FieldSequence:
		items := v.items
		if items == nil {
			items = []FieldValue{}
		}
		return json.Marshal(items)
	case FieldMapping:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, entry := range v.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(entry.Key)
			if err != nil {
				return nil, err
			}
			val, err := entry.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}

func decodeFieldValue(dec *json.Decoder) (FieldValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return FieldValue{}, err
	}
	switch t := tok.(type) {
	case nil:
		return FieldValue{}, nil
	case string:
		return Scalar(t), nil
	case json.Number:
		return Scalar(t.String()), nil
	case bool:
		if t {
			return Scalar("True"), nil
		}
		return Scalar("False"), nil
	case json.Delim:
		switch t {
		case '[':
			items := make([]FieldValue, 0)
			for dec.More() {
				item, err := decodeFieldValue(dec)
				if err != nil {
					return FieldValue{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return FieldValue{}, err
			}
			return Sequence(items...), nil
		case '{':
			entries := make([]MapEntry, 0)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return FieldValue{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return FieldValue{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeFieldValue(dec)
				if err != nil {
					return FieldValue{}, err
				}
				entries = append(entries, MapEntry{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return FieldValue{}, err
			}
			return Mapping(entries...), nil
		}
	}
	return FieldValue{}, fmt.Errorf("unexpected json token %v", tok)
}
