// Package validate checks user input before any browser work starts.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxUsernameLength is the longest handle the site allows
const MaxUsernameLength = 15

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Username strips a leading @ and surrounding space and checks the handle format
func Username(raw string) (string, error) {
	name := strings.TrimPrefix(strings.TrimSpace(raw), "@")

	switch {
	case name == "":
		return "", fmt.Errorf("username is empty")
	case len(name) > MaxUsernameLength:
		return "", fmt.Errorf("username %q is longer than %d characters", name, MaxUsernameLength)
	case !usernamePattern.MatchString(name):
		return "", fmt.Errorf("username %q may only contain letters, digits and underscores", name)
	}
	return name, nil
}
