package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// parsePairs splits "k1=v1" items into a map. Keys and values are trimmed.
func parsePairs(items []string) (map[string]string, error) {
	m := make(map[string]string, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, value, found := strings.Cut(item, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid key-value pair: %s", item)
		}
		m[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return m, nil
}

// DecodeStringToMap converts "key1=value1,key2=value2" into a
// map[string]string. A JSON object string is accepted as well.
func DecodeStringToMap() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(map[string]string{}) {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return map[string]string{}, nil
		}
		if strings.HasPrefix(raw, "{") {
			var m map[string]string
			if err := json.Unmarshal([]byte(raw), &m); err == nil {
				return m, nil
			}
		}
		return parsePairs(strings.Split(raw, ","))
	}
}

// StringSliceToMapHookFunc converts a list of "key=value" items, as
// collected from repeated command line flags, into a map[string]string.
func StringSliceToMapHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.Slice || t != reflect.TypeOf(map[string]string{}) {
			return data, nil
		}
		var items []string
		switch v := data.(type) {
		case []string:
			items = v
		case []any:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return data, nil
				}
				items = append(items, s)
			}
		default:
			return data, nil
		}
		return parsePairs(items)
	}
}

// StringToSliceWithBracketHookFunc decodes a JSON array string into a
// slice. Strings that are not JSON arrays are left to the next hook.
func StringToSliceWithBracketHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Kind, t reflect.Kind, data any) (any, error) {
		if f != reflect.String || t != reflect.Slice {
			return data, nil
		}
		raw := data.(string)
		if raw == "" {
			return []string{}, nil
		}
		var result []any
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return data, nil
		}
		return result, nil
	}
}

// StringToStructHookFunc decodes a JSON object string into a struct or a
// pointer to a struct.
func StringToStructHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String ||
			(t.Kind() != reflect.Struct && !(t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct)) {
			return data, nil
		}
		raw := data.(string)
		if raw == "" {
			return map[string]any{}, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return data, nil
		}
		return m, nil
	}
}

// CompositeDecodeHook chains every hook used when decoding config.
func CompositeDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		DecodeStringToMap(),
		StringSliceToMapHookFunc(),
		StringToStructHookFunc(),
		StringToSliceWithBracketHookFunc(),
	)
}

func decoderConfig() viper.DecoderConfigOption {
	return viper.DecodeHook(CompositeDecodeHook())
}
