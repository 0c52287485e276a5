// Package session generates and validates session identifiers.
package session

import (
	cryptorand "crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var sessionNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9\-]`)
var ulidEntropy = ulid.Monotonic(cryptorand.Reader, 0)

// Session IDs double as directory names, so only a conservative
// filesystem-safe alphabet is accepted.
var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-_]*$`)

// GenerateID returns a unique session ID using the provided base name
func GenerateID(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "session"
	}
	base = strings.ToLower(strings.ReplaceAll(base, " ", "-"))
	base = sessionNameSanitizer.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "session"
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
	return fmt.Sprintf("%s-%s", base, strings.ToLower(id))
}

// DefaultID returns a session ID derived from the current working directory
func DefaultID() string {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Sprintf("default-%s", shortHash(fmt.Sprintf("%d", os.Getpid())))
	}
	return fmt.Sprintf("%s-%s", filepath.Base(cwd), shortHash(cwd))
}

// ValidateID reports whether an ID is safe to use as a session directory name
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session ID must not be empty")
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("session ID %q contains characters outside [a-zA-Z0-9-_]", id)
	}
	return nil
}

// shortHash generates a short hash of a string
func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:4])
}
