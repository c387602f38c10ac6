package decode

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Options tunes decode behaviour.
type Options struct {
	// Weak typing (default true): "123" -> int, 1.0 -> int64 and so on.
	// Inbound frame payloads come from hand-written clients, so be lenient.
	WeaklyTypedInput bool
}

func DefaultOptions() Options {
	return Options{
		WeaklyTypedInput: true,
	}
}

func WithWeaklyTypedInput(v bool) Options {
	return Options{WeaklyTypedInput: v}
}

// DecodeStruct decodes a generic payload map into an arbitrary struct T.
// T is a business payload such as OpenConversationPayload or
// SendMessagePayload. Struct fields are matched via the `json` tag.
func DecodeStruct[T any](m map[string]any, opts ...Options) (*T, error) {
	if m == nil {
		return nil, fmt.Errorf("payload is nil")
	}

	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T

	decCfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			floatToIntHook(),
			sliceAnyToSliceStringHook(),
		),
	}
	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}

// JSON numbers always arrive as float64; map them onto int fields without
// losing the distinction between "42" and 42.0.
func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.Float64 {
			return data, nil
		}
		f := data.(float64)
		switch to.Kind() {
		case reflect.Int, reflect.Int32, reflect.Int64:
			return int64(f), nil
		case reflect.String:
			return strconv.FormatInt(int64(f), 10), nil
		default:
			return data, nil
		}
	}
}

func sliceAnyToSliceStringHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.Slice || to != reflect.TypeOf([]string(nil)) {
			return data, nil
		}
		src, ok := data.([]any)
		if !ok {
			return data, nil
		}
		out := make([]string, 0, len(src))
		for _, v := range src {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("expected string element, got %T", v)
			}
			out = append(out, s)
		}
		return out, nil
	}
}
