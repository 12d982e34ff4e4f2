package configcmder

import "strings"

// secretKeys are printed masked by get and list.
var secretKeys = []string{"api_key", "postgres_dsn"}

// displayValue masks secrets, keeping a short prefix so keys stay
// recognizable.
func displayValue(key, value string) string {
	for _, suffix := range secretKeys {
		if !strings.HasSuffix(key, "."+suffix) {
			continue
		}
		if len(value) <= 8 {
			return strings.Repeat("*", len(value))
		}
		return value[:4] + strings.Repeat("*", 8)
	}
	return value
}
