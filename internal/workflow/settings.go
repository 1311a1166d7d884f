package workflow

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// ChoiceOption is one option of a choice block. The builder stores options
// either as bare strings or as objects; both decode to this shape.
type ChoiceOption struct {
	ID    string `mapstructure:"id"`
	Label string `mapstructure:"label"`
	Value string `mapstructure:"value"`
}

// ChoiceSettings is the typed view of a choice block's settings bag.
type ChoiceSettings struct {
	Options       []ChoiceOption `mapstructure:"options"`
	AllowMultiple bool           `mapstructure:"allow_multiple"`
}

// Values returns the option values, falling back to labels when a value is empty.
func (s ChoiceSettings) Values() []string {
	out := make([]string, 0, len(s.Options))
	for _, o := range s.Options {
		v := o.Value
		if v == "" {
			v = o.Label
		}
		out = append(out, v)
	}
	return out
}

// ChoiceSettings decodes the block's settings into a ChoiceSettings.
func (b *Block) ChoiceSettings() (ChoiceSettings, error) {
	var out ChoiceSettings
	if len(b.Settings) == 0 {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToChoiceOption,
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(b.Settings); err != nil {
		return out, fmt.Errorf("block %s settings: %w", b.ID, err)
	}
	return out, nil
}

func stringToChoiceOption(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(ChoiceOption{}) {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	return map[string]interface{}{"label": s, "value": s}, nil
}
