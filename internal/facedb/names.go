package facedb

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AllowedFile reports whether filename carries an image extension the
// database accepts. The check is case-insensitive.
func AllowedFile(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// RemoveDiacritics strips combining marks ("José" -> "Jose").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// SecureFilename reduces a client supplied filename to a safe basename made of
// ASCII letters, digits, dots, dashes and underscores. It returns "" when
// nothing usable remains.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = RemoveDiacritics(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	return name
}

// ValidateLabel trims an identity label and rejects values that cannot be
// used as a single directory name.
func ValidateLabel(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !safeComponent(name) {
		return "", ErrInvalidLabel
	}
	return name, nil
}

func validateFilename(filename string) error {
	if !safeComponent(filename) {
		return ErrInvalidFilename
	}
	return nil
}

func safeComponent(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") {
		return false
	}
	if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return false
	}
	return !strings.ContainsRune(s, 0)
}
