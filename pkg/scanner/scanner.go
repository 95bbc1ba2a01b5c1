package scanner

import (
	"bytes"
	"os"
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// importPattern matches the first import-style statement on a line:
// `import 'name'`, `import "name"`, `require 'name'` or `require "name"`.
// This is a textual heuristic, not a parser; it may over- or under-report
// relative to true semantic usage, and that imprecision is part of the
// contract.
var importPattern = regexp.MustCompile(`(?:import|require)\s+['"]([\w\-]+)['"]`)

// FileResult holds the imports extracted from a single source file.
type FileResult struct {
	Path    string
	Imports map[string]struct{}
	// Skipped is true when the file could not be read or decoded as text.
	// Skipped files contribute an empty import set and never an error.
	Skipped bool
}

// ScanFile reads the file at path and extracts its imported module names.
func ScanFile(path string) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Imports: map[string]struct{}{}, Skipped: true}
	}

	text, ok := decodeText(data)
	if !ok {
		return FileResult{Path: path, Imports: map[string]struct{}{}, Skipped: true}
	}

	return FileResult{Path: path, Imports: ScanContent(text)}
}

// ScanContent extracts imported module names from source text. Only the
// first match per line is taken; identifiers are case-sensitive and
// deduplicated. Lines are split manually rather than through a buffered
// scanner so minified bundles with arbitrarily long lines are scanned in
// full instead of being cut off at a token limit.
func ScanContent(content []byte) map[string]struct{} {
	imports := make(map[string]struct{})

	for len(content) > 0 {
		line := content
		if i := bytes.IndexByte(content, '\n'); i >= 0 {
			line = content[:i]
			content = content[i+1:]
		} else {
			content = nil
		}
		if m := importPattern.FindSubmatch(line); m != nil {
			imports[string(m[1])] = struct{}{}
		}
	}

	return imports
}

// decodeText returns the content as UTF-8 text, converting UTF-16 input
// when a byte order mark is present. Binary content is rejected.
func decodeText(data []byte) ([]byte, bool) {
	if hasUTF16BOM(data) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return nil, false
		}
		return decoded, true
	}

	if !utf8.Valid(data) {
		return nil, false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, false
	}
	return data, true
}

func hasUTF16BOM(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return (data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF)
}
