package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/kbdlight/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "KBDLIGHT_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig fills opts with precedence CLI flags > env vars > config file.
// opts must be a pointer to a struct; fields opt in with `toml:"a.b"` and
// `env:"NAME"` tags, and a string field named Config holds the file path.
// Flags explicitly set on cmd are never overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		mark := func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		}
		cmd.Flags().VisitAll(mark)
		cmd.PersistentFlags().VisitAll(mark)
	}

	var file map[string]any
	if path := configPath(v); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("failed to parse TOML config %s: %w", path, err)
			}
		}
	}

	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)

		if changed[fieldNameToFlag(fieldType.Name)] {
			continue
		}

		if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" && file != nil {
			if value := getNestedValue(file, tomlPath); value != nil {
				if err := setFieldValue(field, value); err != nil {
					return fmt.Errorf("config key %s: %w", tomlPath, err)
				}
			}
		}

		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				if err := setFieldValueFromString(field, envValue); err != nil {
					return fmt.Errorf("env %s%s: %w", EnvPrefix, envKey, err)
				}
			}
		}
	}

	return nil
}

func configPath(v reflect.Value) string {
	f := v.FieldByName("Config")
	if !f.IsValid() || f.Kind() != reflect.String {
		return ""
	}
	return f.String()
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "DriverPollInterval" -> "driver-poll-interval", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	current := data
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current[parts[len(parts)-1]]
}

// setFieldValue assigns a decoded TOML value. Durations accept either a
// Go duration string or a number of seconds.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		switch x := value.(type) {
		case string:
			return setFieldValueFromString(field, x)
		case int64:
			field.SetInt(int64(time.Duration(x) * time.Second))
		case float64:
			field.SetInt(int64(x * float64(time.Second)))
		default:
			return fmt.Errorf("cannot use %T as duration", value)
		}
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("cannot use %T as string", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("cannot use %T as bool", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		switch x := value.(type) {
		case int64:
			field.SetInt(x)
		case int:
			field.SetInt(int64(x))
		default:
			return fmt.Errorf("cannot use %T as integer", value)
		}
	case reflect.Float64:
		switch x := value.(type) {
		case float64:
			field.SetFloat(x)
		case int64:
			field.SetFloat(float64(x))
		default:
			return fmt.Errorf("cannot use %T as float", value)
		}
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("cannot use %T as string list", value)
		}
		slice := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				slice = append(slice, s)
			}
		}
		field.Set(reflect.ValueOf(slice))
	}
	return nil
}

// setFieldValueFromString parses an env var into the field's type.
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table of a config file. Module
// levels may be given as a [logging.modules] table or as extra string keys
// directly under [logging]. Missing or broken files yield the defaults.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	if configPath == "" {
		return cfg
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var raw struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}

	for key, value := range raw.Logging {
		switch x := value.(type) {
		case map[string]any:
			if key != "modules" {
				continue
			}
			for module, level := range x {
				if s, ok := level.(string); ok {
					cfg.Modules[module] = s
				}
			}
		case string:
			switch key {
			case "level":
				cfg.Level = x
			case "format":
				cfg.Format = x
			case "file":
				cfg.File = x
			default:
				cfg.Modules[key] = x
			}
		}
	}

	return cfg
}
