package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a string such as "10s".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return &durationError{value: s, err: err}
	}
	*d = Duration(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler. Numbers are nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.set(s)
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return &durationError{value: string(data), err: err}
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return &durationError{value: node.Tag, err: fmt.Errorf("line %d: expected a scalar", node.Line), line: node.Line}
	}
	if err := d.set(node.Value); err != nil {
		err.(*durationError).line = node.Line
		return err
	}
	return nil
}

type durationError struct {
	value string
	line  int
	err   error
}

func (e *durationError) Error() string {
	return fmt.Sprintf("invalid duration %q: %v", e.value, e.err)
}

func (e *durationError) Unwrap() error { return e.err }
