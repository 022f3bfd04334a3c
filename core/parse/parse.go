package parse

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs converts raw model output into T.
//
// Strings are returned as-is unless the content is a {"type":..,"value":..}
// envelope. Numbers and booleans are parsed from the trimmed text, with the
// same envelope unwrapping as fallback. Anything else is decoded as JSON:
// markdown fences are stripped, the first JSON value is extracted from any
// surrounding prose, and broken JSON goes through jsonrepair.
func ParseStringAs[T any](content string) (T, error) {
	var result T
	target := reflect.ValueOf(&result).Elem()

	switch target.Kind() {
	case reflect.String:
		if strings.HasPrefix(content, "{") {
			if unwrapped, err := tryUnwrapPrimitive(content); err == nil {
				target.SetString(unwrapped)
				return result, nil
			}
		}
		target.SetString(content)
		return result, nil

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		trimmed := strings.TrimSpace(content)
		err := setScalar(target, trimmed)
		if err == nil {
			return result, nil
		}
		if unwrapped, unwrapErr := tryUnwrapPrimitive(trimmed); unwrapErr == nil {
			if retryErr := setScalar(target, unwrapped); retryErr == nil {
				return result, nil
			}
		}
		return result, fmt.Errorf("failed to parse content as %s: %w", target.Kind(), err)
	}

	candidate := ExtractJSON(content)
	err := json.Unmarshal([]byte(candidate), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}

	if err = json.Unmarshal([]byte(repaired), &result); err == nil {
		return result, nil
	}
	if unwrapped, unwrapErr := unwrapSchemaValues(repaired); unwrapErr == nil {
		if json.Unmarshal([]byte(unwrapped), &result) == nil {
			return result, nil
		}
	}
	return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (original content: %s, repaired: %s)", result, err, content, repaired)
}

func setScalar(target reflect.Value, raw string) error {
	switch target.Kind() {
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		target.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(raw, 10, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(raw, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetFloat(v)
	default:
		return fmt.Errorf("unsupported scalar kind %s", target.Kind())
	}
	return nil
}

// ExtractJSON returns the JSON value embedded in content: a ```json fenced
// block if present, otherwise the span from the first '{' or '[' to the
// matching last '}' or ']'. Content without either is returned trimmed.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	if start := strings.Index(content, "```"); start != -1 {
		body := content[start+3:]
		if newline := strings.IndexByte(body, '\n'); newline != -1 {
			body = body[newline+1:]
		}
		if end := strings.Index(body, "```"); end != -1 {
			return strings.TrimSpace(body[:end])
		}
	}

	start := strings.IndexAny(content, "{[")
	if start == -1 {
		return content
	}
	closer := byte('}')
	if content[start] == '[' {
		closer = ']'
	}
	if end := strings.LastIndexByte(content, closer); end > start {
		return content[start : end+1]
	}
	return content[start:]
}

// tryUnwrapPrimitive handles models that answer {"type":"integer","value":5}
// instead of 5.
func tryUnwrapPrimitive(content string) (string, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", err
	}

	value, hasValue := data["value"]
	if _, hasType := data["type"]; !hasType || !hasValue || len(data) != 2 {
		return "", fmt.Errorf("not a schema-wrapped value")
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case float64, bool:
		return fmt.Sprintf("%v", v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

func unwrapSchemaValues(jsonStr string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", err
	}
	encoded, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType {
			if value, hasValue := v["value"]; hasValue && len(v) == 2 {
				return recursiveUnwrap(value)
			}
		}
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = recursiveUnwrap(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = recursiveUnwrap(val)
		}
		return result
	default:
		return data
	}
}
