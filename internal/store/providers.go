package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Providers maps provider id to its URL schemes and remembers key order.
// Keys decoded from disk keep file order, overwritten keys keep their slot, and
// new keys are appended. This keeps a re-run over unchanged data byte-identical.
type Providers struct {
	keys    []string
	schemes map[string][]string
}

// NewProviders returns an empty store.
func NewProviders() *Providers {
	return &Providers{schemes: make(map[string][]string)}
}

// Len is the number of providers held.
func (p *Providers) Len() int { return len(p.keys) }

// IDs returns the ids in held order. The result is never nil, so an empty
// store binds as an empty SQL array rather than NULL.
func (p *Providers) IDs() []string {
	out := make([]string, 0, len(p.keys))
	return append(out, p.keys...)
}

// Get returns the schemes for id.
func (p *Providers) Get(id string) ([]string, bool) {
	s, ok := p.schemes[id]
	return s, ok
}

// Set writes or overwrites the record for id. A nil slice is stored as empty.
func (p *Providers) Set(id string, schemes []string) {
	if _, ok := p.schemes[id]; !ok {
		p.keys = append(p.keys, id)
	}
	if schemes == nil {
		schemes = []string{}
	}
	p.schemes[id] = append([]string{}, schemes...)
}

// Prune drops every id not in valid, in place, and returns the removed ids.
func (p *Providers) Prune(valid []string) []string {
	keep := make(map[string]struct{}, len(valid))
	for _, id := range valid {
		keep[id] = struct{}{}
	}
	var removed []string
	kept := p.keys[:0]
	for _, id := range p.keys {
		if _, ok := keep[id]; ok {
			kept = append(kept, id)
			continue
		}
		removed = append(removed, id)
		delete(p.schemes, id)
	}
	p.keys = kept
	return removed
}

// MarshalJSON writes the object in held key order without HTML escaping.
func (p *Providers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, id := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(id); err != nil {
			return nil, fmt.Errorf("encode id %q: %w", id, err)
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(p.schemes[id]); err != nil {
			return nil, fmt.Errorf("encode schemes for %q: %w", id, err)
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return literalLineSeparators(buf.Bytes()), nil
}

// UnmarshalJSON accepts an object of string arrays, keeping key order. A null
// value is read as an empty list.
func (p *Providers) UnmarshalJSON(data []byte) error {
	decoded, err := decodeProviders(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}

func decodeProviders(r io.Reader) (*Providers, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read opening token: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}
	out := NewProviders()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}
		var schemes []string
		if err := dec.Decode(&schemes); err != nil {
			return nil, fmt.Errorf("decode schemes for %q: %w", key, err)
		}
		out.Set(key, schemes)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read closing token: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	return out, nil
}

func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}

// literalLineSeparators turns the \u2028 and \u2029 escapes encoding/json
// always emits back into the raw runes, leaving every other escape alone.
func literalLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if esc := data[i:]; len(esc) >= 6 && esc[1] == 'u' && string(esc[2:5]) == "202" {
			switch esc[5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}
