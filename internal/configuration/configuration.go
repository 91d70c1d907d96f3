// Package configuration implements reading of the application configuration
// from Unix-type configuration files and the environment.
package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// Handler is the principal implementation for reading the configuration.
type Handler struct {
	genericHandler genericConfigProvider
	lookupEnv      func(key string) (string, bool)
}

// NewHandler returns a pointer to a new configuration [Handler].
func NewHandler(genericHandler genericConfigProvider) *Handler {
	return &Handler{
		genericHandler: genericHandler,
		lookupEnv:      os.LookupEnv,
	}
}

// Load establishes an [AppConfiguration] from the given configuration file,
// with any set environment variables taking precedence over its values. A
// configuration file that does not exist is not an error when optional is set.
func (c *Handler) Load(filename string, optional bool) (*AppConfiguration, error) {
	envMap := make(map[string]string)

	if filename != "" {
		fileMap, err := c.genericHandler.Read(filename)
		if err != nil {
			if !optional || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("(config) failed to read %s: %w", filename, err)
			}
			slog.Debug("Configuration file not found (skipped)",
				"path", filename,
			)
		}
		for k, v := range fileMap {
			envMap[k] = v
		}
	}

	for _, key := range []string{KeyComprehensive, KeyVerify, KeyMinFreeSpace, KeyScanExclude, KeyNoProgress, KeyUI} {
		if value, ok := c.lookupEnv(key); ok {
			envMap[key] = value
		}
	}

	config := NewAppConfiguration()
	config.Comprehensive = c.MapKeyToBool(envMap, KeyComprehensive)
	config.Verify = c.MapKeyToBool(envMap, KeyVerify)
	config.NoProgress = c.MapKeyToBool(envMap, KeyNoProgress)
	config.UI = c.MapKeyToBool(envMap, KeyUI)
	config.ScanExcludes = c.MapKeyToList(envMap, KeyScanExclude)

	minFree, err := c.MapKeyToBytes(envMap, KeyMinFreeSpace)
	if err != nil {
		return nil, fmt.Errorf("(config) invalid %s: %w", KeyMinFreeSpace, err)
	}
	config.MinFreeSpace = minFree

	return config, nil
}

// MapKeyToString returns the value for a key, or an empty string.
func (c *Handler) MapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return strings.TrimSpace(value)
	}

	return ""
}

// MapKeyToBool returns the boolean value for a key, with anything that is not
// parseable being false.
func (c *Handler) MapKeyToBool(envMap map[string]string, key string) bool {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return false
	}

	switch strings.ToLower(value) {
	case "yes", "on":
		return true
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}

	return boolValue
}

// MapKeyToBytes returns the amount of bytes for a key, which can be given in
// human-readable form (e.g. "10GB" or "512MiB").
func (c *Handler) MapKeyToBytes(envMap map[string]string, key string) (uint64, error) {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return 0, nil
	}

	bytes, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("(config-bytes) %w", err)
	}

	return bytes, nil
}

// MapKeyToList returns the comma-separated values for a key, with empty
// elements removed.
func (c *Handler) MapKeyToList(envMap map[string]string, key string) []string {
	list := []string{}

	for _, elem := range strings.Split(c.MapKeyToString(envMap, key), ",") {
		if elem = strings.TrimSpace(elem); elem != "" {
			list = append(list, elem)
		}
	}

	return list
}
