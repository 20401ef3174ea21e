// Package config reads settings from a prefixed key space. The process
// environment is the default source; the CLI layers viper on top through
// FromLookup.
//
// Accessors never fail: a missing value yields the default and a malformed
// one is logged and replaced by the default. Only MayPort and MayEnum panic,
// since a bad listener address or backend name cannot be defaulted sensibly.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"ffiassembler/internal/platform/logger"
)

// Lookup resolves a fully qualified key such as FFI_STORE_DRIVER
type Lookup func(key string) (string, bool)

// Conf is a view over a Lookup under a key prefix such as "FFI_STORE_"
type Conf struct {
	prefix string
	lookup Lookup
}

// New reads the process environment
func New() Conf { return Conf{lookup: os.LookupEnv} }

// FromLookup reads through l
func FromLookup(l Lookup) Conf { return Conf{lookup: l} }

// FromMap reads fixed values, mostly for tests
func FromMap(m map[string]string) Conf {
	return FromLookup(func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	})
}

// Prefix narrows the view; prefixes accumulate
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p, lookup: c.lookup} }

func (c Conf) key(k string) string { return c.prefix + k }

// get returns the trimmed value; the zero Conf reads the environment
func (c Conf) get(k string) string {
	lookup := c.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(c.key(k))
	return strings.TrimSpace(v)
}

// parsed returns parse(value), or def when the value is empty or does not parse
func parsed[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s := c.get(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).Msg("unparsable config value; using default")
		return def
	}
	return v
}

// MayString returns the value, or def when empty
func (c Conf) MayString(key, def string) string {
	return parsed(c, key, def, func(s string) (string, error) { return s, nil })
}

// MayInt parses a base-10 int
func (c Conf) MayInt(key string, def int) int { return parsed(c, key, def, strconv.Atoi) }

// MayBool parses anything strconv.ParseBool accepts
func (c Conf) MayBool(key string, def bool) bool { return parsed(c, key, def, strconv.ParseBool) }

// MayDuration parses a Go duration such as 250ms or 2m
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return parsed(c, key, def, time.ParseDuration)
}

// MayCSV splits on commas and drops blank items; def when nothing remains
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, item := range strings.Split(c.get(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayPort returns a listen address like ":4000"; a port outside 1..65535 panics
func (c Conf) MayPort(key string, def int) string {
	p := c.MayInt(key, def)
	if p < 1 || p > 65535 {
		logger.Get().Panic().Str("key", c.key(key)).Int("value", p).Msg("port outside 1..65535")
	}
	return ":" + strconv.Itoa(p)
}

// MayEnum returns the allowed value matching case-insensitively, def when
// empty, and panics on anything else
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return ""
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return strings.ToLower(a)
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("value not in allowed set")
	return ""
}
