package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Plan is the ordered list of step descriptions returned for a request
type Plan []string

// Manifest maps generated file paths to their contents. Unlike a Go map it
// keeps the order in which files were added or decoded, which is the order
// the files panel lists them in.
type Manifest struct {
	keys  []string
	files map[string]string
}

// NewManifest builds a manifest from alternating name/content pairs
func NewManifest(pairs ...string) Manifest {
	var m Manifest
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// Set adds or replaces a file. Replacing keeps the original position.
func (m *Manifest) Set(name, content string) {
	if m.files == nil {
		m.files = make(map[string]string)
	}
	if _, ok := m.files[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.files[name] = content
}

// Get returns the content stored under name
func (m Manifest) Get(name string) (string, bool) {
	content, ok := m.files[name]
	return content, ok
}

// Keys returns the file names in order
func (m Manifest) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of files
func (m Manifest) Len() int {
	return len(m.keys)
}

// Files returns a plain map copy, for callers that don't care about order
func (m Manifest) Files() map[string]string {
	out := make(map[string]string, len(m.files))
	for k, v := range m.files {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the manifest as a JSON object in key order
func (m Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.files[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of string values, keeping key order.
// null decodes to an empty manifest.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	*m = Manifest{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("manifest: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("manifest: unexpected key %v", keyTok)
		}
		var content string
		if err := dec.Decode(&content); err != nil {
			return fmt.Errorf("manifest: file %q: %w", key, err)
		}
		m.Set(key, content)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
