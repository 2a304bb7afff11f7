package profile

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// EncodeJSON writes the profile as indented JSON. The output round-trips
// through DecodeJSON without loss.
func EncodeJSON(w io.Writer, p *Profile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// DecodeJSON reads a profile previously written by EncodeJSON.
func DecodeJSON(r io.Reader) (*Profile, error) {
	var p Profile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding profile dump: %w", err)
	}
	p.renumberBranches()
	return &p, nil
}

// EncodeYAML writes the profile as YAML.
func EncodeYAML(w io.Writer, p *Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

// DecodeYAML reads a profile previously written by EncodeYAML.
func DecodeYAML(r io.Reader) (*Profile, error) {
	var p Profile
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding profile dump: %w", err)
	}
	p.renumberBranches()
	return &p, nil
}
