// Package artmeta derives artwork metadata from dataset file paths.
//
// The dataset convention is `.../<movement_dir>/<author>_<title>[-<year>].<ext>`,
// where the movement directory uses underscores for spaces and the author and
// title use hyphens for spaces. Parsing is pure and total: malformed input never
// produces an error, only a best-effort Metadata with Fallback set.
package artmeta

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/nagomi-art/nagomi/internal/models"
)

// ErrMalformedPath reports a path with too few segments to carry a movement directory.
var ErrMalformedPath = errors.New("artmeta: path has no movement segment")

var (
	// filenamePattern matches "author_title.ext"; the title part keeps any
	// trailing -YYYY, which is split off separately.
	filenamePattern = regexp.MustCompile(`^(.*?)_(.*)\.[^.]*$`)
	trailingYear    = regexp.MustCompile(`[\s-]?(\d{4})$`)
)

// Parse extracts metadata from an artwork file path. Filenames that do not match
// the author_title[-year] convention fall back to author "Unknown" and the file
// stem as title; a missing movement directory falls back to "N/A". Fallback is
// set on the returned Metadata in both cases.
func Parse(path string) models.Metadata {
	meta := models.Metadata{Movement: "N/A"}

	movement, err := movementFromPath(path)
	if err != nil {
		meta.Fallback = true
	} else {
		meta.Movement = movement
	}

	filename := lastSegment(path)
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		meta.Author = "Unknown"
		meta.Title = capitalize(stem(filename))
		meta.Fallback = true
		return meta
	}

	meta.Author = titleCase(strings.ReplaceAll(m[1], "-", " "))

	titlePart := m[2]
	if ym := trailingYear.FindStringSubmatch(titlePart); ym != nil {
		meta.Year = ym[1]
	}
	title := trailingYear.ReplaceAllString(titlePart, "")
	title = strings.ReplaceAll(title, "-", " ")
	meta.Title = strings.TrimSpace(capitalize(title))
	return meta
}

// movementFromPath returns the second-to-last path segment as a display name.
// Returns ErrMalformedPath when the path has fewer than two segments.
func movementFromPath(path string) (string, error) {
	segs := splitPath(path)
	if len(segs) < 2 {
		return "", ErrMalformedPath
	}
	dir := segs[len(segs)-2]
	return titleCase(strings.ReplaceAll(dir, "_", " ")), nil
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

func lastSegment(path string) string {
	segs := splitPath(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

func stem(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		return filename[:i]
	}
	return filename
}

// titleCase uppercases the first letter of each space-separated word and
// lowercases the rest, like Python's str.title for the inputs seen here.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
