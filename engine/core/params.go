package core

import (
	"encoding/json"
	"fmt"

	"dario.cat/mergo"
)

// -----------------------------------------------------------------------------
// Input
// -----------------------------------------------------------------------------

// Input holds JSON-shaped parameters keyed by name.
type Input map[string]any

func NewInput(data map[string]any) *Input {
	input := Input{}
	for key, value := range data {
		input[key] = value
	}
	return &input
}

func (i *Input) AsMap() map[string]any {
	if i == nil {
		return nil
	}
	out := make(map[string]any, len(*i))
	for key, value := range *i {
		out[key] = value
	}
	return out
}

func (i *Input) Prop(key string) any {
	if i == nil {
		return nil
	}
	return (*i)[key]
}

func (i *Input) Set(key string, value any) {
	if *i == nil {
		*i = Input{}
	}
	(*i)[key] = value
}

// Merge returns a new input where values from other fill missing keys
// and existing keys keep the receiver's values.
func (i *Input) Merge(other *Input) (*Input, error) {
	if i == nil || *i == nil {
		return other, nil
	}
	merged := i.AsMap()
	if other != nil {
		if err := mergo.Merge(&merged, other.AsMap()); err != nil {
			return nil, fmt.Errorf("failed to merge inputs: %w", err)
		}
	}
	result := Input(merged)
	return &result, nil
}

func (i *Input) Clone() (*Input, error) {
	if i == nil {
		return nil, nil
	}
	cloned, err := deepCopyMap(*i)
	if err != nil {
		return nil, err
	}
	result := Input(cloned)
	return &result, nil
}

// -----------------------------------------------------------------------------
// Output
// -----------------------------------------------------------------------------

// Output holds a step's JSON-shaped result keyed by name.
type Output map[string]any

func (o *Output) AsMap() map[string]any {
	if o == nil {
		return nil
	}
	out := make(map[string]any, len(*o))
	for key, value := range *o {
		out[key] = value
	}
	return out
}

func (o *Output) Prop(key string) any {
	if o == nil {
		return nil
	}
	return (*o)[key]
}

func (o *Output) Set(key string, value any) {
	if *o == nil {
		*o = Output{}
	}
	(*o)[key] = value
}

func (o *Output) Clone() (*Output, error) {
	if o == nil {
		return nil, nil
	}
	cloned, err := deepCopyMap(*o)
	if err != nil {
		return nil, err
	}
	result := Output(cloned)
	return &result, nil
}

// deepCopyMap round-trips through JSON; values are JSON-shaped by
// construction, so this is lossless.
func deepCopyMap(src map[string]any) (map[string]any, error) {
	encoded, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("failed to deep-copy map: %w", err)
	}
	var dst map[string]any
	if err := json.Unmarshal(encoded, &dst); err != nil {
		return nil, fmt.Errorf("failed to deep-copy map: %w", err)
	}
	return dst, nil
}
