package config

import (
	"reflect"
	"strings"
)

// sensitiveKeywords flags field names masked by Redact, adapted from the
// teacher's logmask.go.
var sensitiveKeywords = []string{
	"password",
	"secret",
	"token",
	"apikey",
	"api_key",
	"credential",
}

func isSensitiveKey(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Redact returns a copy of data with any field whose name looks like a
// secret (provider API keys, auth tokens) replaced with "***". Used before
// returning Settings from the settings-read endpoint (§9: "Secrets ...
// never returned by the settings-read endpoint").
func Redact(data any) any {
	if data == nil {
		return nil
	}
	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		result := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			if isSensitiveKey(key) {
				result[key] = "***"
				continue
			}
			result[key] = Redact(iter.Value().Interface())
		}
		return result

	case reflect.Slice, reflect.Array:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			result[i] = Redact(val.Index(i).Interface())
		}
		return result

	case reflect.Struct:
		result := make(map[string]any, val.NumField())
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			if isSensitiveKey(field.Name) {
				result[field.Name] = "***"
				continue
			}
			result[field.Name] = Redact(val.Field(i).Interface())
		}
		return result

	default:
		return data
	}
}
