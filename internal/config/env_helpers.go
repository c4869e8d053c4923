package config

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// fromEnv hands the parsed value of key to set. Unset or blank variables are
// skipped; unparsable ones are logged and skipped so a typo never zeroes a
// setting loaded from the file.
func fromEnv[T any](key string, parse func(string) (T, error), set func(T)) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	v, err := parse(raw)
	if err != nil {
		log.WithFields(log.Fields{"env": key, "value": raw}).WithError(err).Warn("ignoring invalid environment override")
		return
	}
	set(v)
}

func setStringFromEnv(key string, set func(string)) {
	fromEnv(key, func(s string) (string, error) { return s, nil }, set)
}

func setIntFromEnv(key string, set func(int)) { fromEnv(key, strconv.Atoi, set) }

func setFloatFromEnv(key string, set func(float64)) {
	fromEnv(key, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }, set)
}

func setToggleFromEnv(key string, set func(bool)) { fromEnv(key, parseToggle, set) }

// parseToggle accepts yes/no and on/off on top of strconv.ParseBool.
func parseToggle(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "on", "y":
		return true, nil
	case "no", "off", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("not a boolean: %q", s)
	}
	return b, nil
}

func splitAndTrim(input, sep string) []string {
	var out []string
	for _, part := range strings.Split(input, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns "" or a cleaned path with one leading slash and
// no trailing slash.
func normalizeBasePath(raw string) string {
	p := strings.TrimSpace(raw)
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	if p == "/" {
		return ""
	}
	return p
}
