// pkg/converter/values.go
package converter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

// ValueConverter coerces raw values into their declared semantic types
type ValueConverter struct {
	config Config
}

// Config provides configuration options for value coercion
type Config struct {
	// Whether to treat empty strings as NULL
	EmptyStringAsNull bool
	// Whether to trim surrounding whitespace from string values
	TrimStrings bool
	// Date layouts tried in order; the extract's native layout comes first
	DateLayouts []string
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		EmptyStringAsNull: true,
		TrimStrings:       true,
		DateLayouts: []string{
			"01/02/2006",
			"2006-01-02",
			"2006-01-02 15:04:05",
			time.RFC3339,
			"2006/01/02",
			"01-02-2006",
		},
	}
}

// NewValueConverter creates a ValueConverter with default configuration
func NewValueConverter() *ValueConverter {
	return NewValueConverterWithConfig(DefaultConfig())
}

// NewValueConverterWithConfig creates a ValueConverter with custom configuration
func NewValueConverterWithConfig(config Config) *ValueConverter {
	return &ValueConverter{config: config}
}

// Coerce converts a raw value to the target semantic type. Missing values
// (nil or null sentinels) stay nil; non-empty values that cannot be parsed
// return an error so the caller can abort rather than null them silently.
func (c *ValueConverter) Coerce(value interface{}, target model.FieldType) (interface{}, error) {
	if IsNull(value) {
		return nil, nil
	}

	switch target {
	case model.TypeString:
		return c.convertToText(value)
	case model.TypeInteger:
		return c.convertToInteger(value)
	case model.TypeFloat:
		return c.convertToFloat(value)
	case model.TypeDate:
		return c.convertToDate(value)
	case model.TypeBoolean:
		return c.convertToBoolean(value)
	default:
		return c.convertToText(value)
	}
}

// IsNull determines if a value should be treated as NULL
func IsNull(value interface{}) bool {
	if value == nil {
		return true
	}

	if strVal, ok := value.(string); ok {
		trimmed := strings.TrimSpace(strVal)
		nullValues := []string{"", "null", "NULL", "nil", "NIL"}
		for _, null := range nullValues {
			if trimmed == null {
				return true
			}
		}
	}

	return false
}

// convertToText converts a value to a trimmed string
func (c *ValueConverter) convertToText(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		if c.config.TrimStrings {
			v = strings.TrimSpace(v)
		}
		if v == "" && c.config.EmptyStringAsNull {
			return nil, nil
		}
		return v, nil
	case []byte:
		return c.convertToText(string(v))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		return fmt.Sprintf("%v", v), nil
	case time.Time:
		return v.Format("2006-01-02"), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// convertToInteger converts a value to int64
func (c *ValueConverter) convertToInteger(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float32:
		return c.convertToInteger(float64(v))
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("cannot convert %v to integer without losing precision", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		cleaned, negative := cleanNumericString(v)
		if cleaned == "" {
			return nil, fmt.Errorf("cannot convert string %q to integer", v)
		}
		if intVal, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			if negative {
				return -intVal, nil
			}
			return intVal, nil
		}
		// Extracts sometimes render integers as "12.0"
		if floatVal, err := strconv.ParseFloat(cleaned, 64); err == nil && floatVal == math.Trunc(floatVal) {
			if negative {
				return -int64(floatVal), nil
			}
			return int64(floatVal), nil
		}
		return nil, fmt.Errorf("cannot convert string %q to integer", v)
	default:
		return nil, fmt.Errorf("cannot convert %T to integer", value)
	}
}

// convertToFloat converts a value to float64
func (c *ValueConverter) convertToFloat(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		cleaned, negative := cleanNumericString(v)
		if cleaned == "" {
			return nil, fmt.Errorf("cannot convert string %q to float", v)
		}
		floatVal, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert string %q to float", v)
		}
		if negative {
			return -floatVal, nil
		}
		return floatVal, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to float", value)
	}
}

// convertToDate converts a value to a date, trying the configured layouts in order
func (c *ValueConverter) convertToDate(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		for _, layout := range c.config.DateLayouts {
			if parsed, err := time.Parse(layout, v); err == nil {
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as date", v)
	case int64:
		// Unix timestamp (seconds since epoch)
		return time.Unix(v, 0).UTC(), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to date", value)
	}
}

// convertToBoolean converts a value to bool
func (c *ValueConverter) convertToBoolean(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0.0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "t", "yes", "y", "1":
			return true, nil
		case "false", "f", "no", "n", "0":
			return false, nil
		default:
			return nil, fmt.Errorf("cannot convert string %q to boolean", v)
		}
	default:
		return nil, fmt.Errorf("cannot convert %T to boolean", value)
	}
}

// cleanNumericString strips currency symbols, thousands separators and
// accounting parentheses so "$1,234.56" and "(99.50)" parse. Returns the
// cleaned digits and whether the value was negative via parentheses.
func cleanNumericString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	negative := false

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	var b strings.Builder
	for _, r := range s {
		switch r {
		case ',', '$', '€', '£', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}

	return b.String(), negative
}
