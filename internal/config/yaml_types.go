package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// StringOrArray is a string list that may also be written as one scalar,
// so `build_flags: -tags=integration` and `build_flags: [-tags=a, -race]`
// both parse.
type StringOrArray []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringOrArray) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string
		if err := node.Decode(&str); err != nil {
			return err
		}

		*s = StringOrArray{}
		if str != "" {
			*s = append(*s, str)
		}

	case yaml.SequenceNode:
		var arr []string
		if err := node.Decode(&arr); err != nil {
			return err
		}

		*s = arr

	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}

	return nil
}

// MarshalYAML writes a single element back as a scalar.
func (s StringOrArray) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}

	return []string(s), nil
}
