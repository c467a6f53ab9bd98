package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv reads nameEnv converted to the type of defaultValue. Unset or
// unparsable values yield defaultValue.
func GetEnv[T any](nameEnv string, defaultValue T) T {
	valueStr, ok := os.LookupEnv(nameEnv)
	if !ok || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	valueStr = strings.TrimSpace(valueStr)

	var value any
	switch any(defaultValue).(type) {
	case int:
		v, err := strconv.Atoi(valueStr)
		if err != nil {
			return defaultValue
		}
		value = v
	case int64:
		v, err := strconv.ParseInt(valueStr, 10, 64)
		if err != nil {
			return defaultValue
		}
		value = v
	case bool:
		v, err := strconv.ParseBool(valueStr)
		if err != nil {
			return defaultValue
		}
		value = v
	case float64:
		v, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return defaultValue
		}
		value = v
	case time.Duration:
		v, err := time.ParseDuration(valueStr)
		if err != nil {
			return defaultValue
		}
		value = v
	case []string:
		var parts []string
		for _, p := range strings.Split(valueStr, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		value = parts
	case string:
		value = valueStr
	default:
		return defaultValue
	}

	return value.(T)
}
