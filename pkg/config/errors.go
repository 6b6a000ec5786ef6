package config

import "fmt"

// ConfigurationError reports a missing or invalid deployment variable. It is fatal at
// startup.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}
