package narrative

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the fragment did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("narrative: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be used.
	ErrMalformedFrontMatter = errors.New("narrative: malformed frontmatter")
)

// FragmentMeta is the frontmatter carried by a markdown fragment.
type FragmentMeta struct {
	Before int
}

type fragmentEnvelope struct {
	Narrate struct {
		Before *int `yaml:"before"`
	} `yaml:"narrate"`
}

// ParseFragment splits a fragment into its metadata and markdown body:
//
//	---
//	narrate:
//	  before: 3
//	---
//	### Heading
func ParseFragment(content []byte) (FragmentMeta, []byte, error) {
	if len(content) == 0 {
		return FragmentMeta{}, nil, ErrMissingFrontMatter
	}
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return FragmentMeta{}, nil, ErrMissingFrontMatter
	}
	rest := normalized[4:]
	var metaBytes, body []byte
	if bytes.HasPrefix(rest, []byte("---\n")) {
		body = rest[4:]
	} else {
		parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
		if len(parts) < 2 {
			return FragmentMeta{}, nil, ErrMalformedFrontMatter
		}
		metaBytes, body = parts[0], parts[1]
	}
	var envelope fragmentEnvelope
	if err := yaml.Unmarshal(metaBytes, &envelope); err != nil {
		return FragmentMeta{}, nil, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	if envelope.Narrate.Before == nil {
		return FragmentMeta{}, nil, fmt.Errorf("%w: narrate.before is required", ErrMalformedFrontMatter)
	}
	return FragmentMeta{Before: *envelope.Narrate.Before}, body, nil
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
