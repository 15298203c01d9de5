package output

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// DeterministicEncode produces byte-identical JSON output
func DeterministicEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(normalizeValue(v)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DeterministicEncodeIndented is DeterministicEncode with indentation
func DeterministicEncodeIndented(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", indent)
	if err := encoder.Encode(normalizeValue(v)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// normalizeValue converts v into maps, slices and scalars. Maps encode with
// sorted keys; floats are rounded.
func normalizeValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if m, ok := v.(json.Marshaler); ok {
		if raw, err := m.MarshalJSON(); err == nil {
			return json.RawMessage(raw)
		}
	}

	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		return normalizeMap(val)
	case reflect.Slice, reflect.Array:
		return normalizeSlice(val)
	case reflect.Struct:
		return normalizeStruct(val)
	case reflect.Float32, reflect.Float64:
		return RoundFloat(val.Float())
	case reflect.Interface:
		if val.IsNil() {
			return nil
		}
		return normalizeValue(val.Interface())
	default:
		return val.Interface()
	}
}

func normalizeMap(val reflect.Value) map[string]interface{} {
	if val.IsNil() {
		return nil
	}
	result := make(map[string]interface{}, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		if value := normalizeValue(iter.Value().Interface()); value != nil {
			result[iter.Key().String()] = value
		}
	}
	return result
}

// normalizeSlice keeps empty non-nil slices so that "warnings": [] survives
func normalizeSlice(val reflect.Value) interface{} {
	if val.Kind() == reflect.Slice && val.IsNil() {
		return nil
	}
	result := make([]interface{}, val.Len())
	for i := range result {
		result[i] = normalizeValue(val.Index(i).Interface())
	}
	return result
}

func normalizeStruct(val reflect.Value) map[string]interface{} {
	result := make(map[string]interface{})
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tagName, omitEmpty := parseJSONTag(field.Tag.Get("json"))
		if tagName == "-" {
			continue
		}
		if tagName == "" {
			tagName = field.Name
		}

		normalized := normalizeValue(val.Field(i).Interface())
		if normalized == nil || (omitEmpty && isZeroValue(normalized)) {
			continue
		}
		result[tagName] = normalized
	}
	return result
}

func parseJSONTag(tag string) (name string, omitEmpty bool) {
	name, opts, _ := strings.Cut(tag, ",")
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty
}

func isZeroValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return reflect.ValueOf(val).IsZero()
	case float32, float64:
		return reflect.ValueOf(val).IsZero()
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	default:
		return false
	}
}
