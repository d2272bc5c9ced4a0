package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Pack is a named collection of templates loaded from a YAML file:
//
//	name: writing
//	prompts:
//	  - title: Make it pirate
//	    prompt: Rewrite this like a pirate.
//	  - title: Haiku
//	    prompt: "Rewrite the following text as a haiku:"
//
// A prompt ending in ':' must be quoted or YAML reads it as a mapping.
type Pack struct {
	Name    string     `yaml:"name"`
	Prompts []Template `yaml:"prompts"`
}

// LoadPack reads a prompt pack from path. An empty path yields an empty pack.
func LoadPack(path string) (*Pack, error) {
	if path == "" {
		return &Pack{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt pack %s: %w", path, err)
	}

	pack, err := ParsePack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt pack %s: %w", path, err)
	}
	return pack, nil
}

// ParsePack decodes a YAML prompt pack and sanitizes its templates
func ParsePack(data []byte) (*Pack, error) {
	var pack Pack
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pack); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	pack.Prompts = Sanitize(pack.Prompts)
	return &pack, nil
}
