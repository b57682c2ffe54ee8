package config

import "fmt"

const (
	errRequiredEnvNotSetFmt = "required environment variable %s is not set"
	errUnknownOptionFmt     = "unknown %s %q (expected one of %v)"
)

type messageBuilders struct {
	requiredEnvNotSet func(string) string
	unknownOption     func(key, value string, allowed []string) string
}

func newMessageBuilders() messageBuilders {
	return messageBuilders{
		requiredEnvNotSet: func(key string) string {
			return fmt.Sprintf(errRequiredEnvNotSetFmt, key)
		},
		unknownOption: func(key, value string, allowed []string) string {
			return fmt.Sprintf(errUnknownOptionFmt, key, value, allowed)
		},
	}
}

var messages = newMessageBuilders()
