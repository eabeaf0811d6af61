package core

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

const maxFilenameLength = 200

var (
	spaceRun       = regexp.MustCompile(`\s+`)
	mediaExtension = regexp.MustCompile(`^\.[A-Za-z0-9]{1,5}$`)
	reservedNames  = map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
)

// SanitizeFilename makes an uploaded filename safe to store under the
// upload directory: letters, digits and single spaces, with a short
// alphanumeric extension kept as is.
func SanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	if mediaExtension.MatchString(ext) {
		filename = strings.TrimSuffix(filename, ext)
	} else {
		ext = ""
	}

	stem := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, filename)
	stem = strings.TrimSpace(spaceRun.ReplaceAllString(stem, " "))

	if reservedNames[strings.ToUpper(stem)] {
		stem += " file"
	}
	if len(stem) > maxFilenameLength {
		stem = strings.TrimRight(stem[:maxFilenameLength], " ")
	}
	if stem == "" {
		stem = "upload"
	}
	return stem + ext
}
