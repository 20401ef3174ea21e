// Package raw reads bootstrap settings straight from the environment.
// The logger configures itself through it, so it must not log.
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf is an environment key prefix such as "LOG_"
type Conf string

// New returns the unprefixed view
func New() Conf { return "" }

// Prefix appends p to the key prefix
func (c Conf) Prefix(p string) Conf { return c + Conf(p) }

func (c Conf) lookup(key string) string {
	return strings.TrimSpace(os.Getenv(string(c) + key))
}

// Get returns the value, or def when unset or blank
func (c Conf) Get(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// GetBool treats 1, true and yes as true and any other non-empty value as false
func (c Conf) GetBool(key string, def bool) bool {
	switch v := strings.ToLower(c.lookup(key)); v {
	case "":
		return def
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// GetInt returns a non-negative int, or def when unset or not one
func (c Conf) GetInt(key string, def int) int {
	if n, err := strconv.Atoi(c.lookup(key)); err == nil && n >= 0 {
		return n
	}
	return def
}
