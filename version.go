package recruit

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version will return the recruit release version
func Version() string {
	return strings.TrimSpace(version)
}
