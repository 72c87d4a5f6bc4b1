package mapping

import "fmt"

// ConfigError names the mapping and the string that could not be used.
type ConfigError struct {
	Mapping string
	Value   string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("mapping %s: %v", e.Mapping, e.Err)
	}
	return fmt.Sprintf("mapping %s: invalid %q: %v", e.Mapping, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
