package search

import (
	"bufio"
	"os"
	"strings"
)

// Match is one line that contained every search term.
type Match struct {
	File string
	Line int
	Text string
}

// InFiles scans each file for lines containing all of the given terms,
// case-insensitively. Files that cannot be read are skipped silently,
// matching the scanner's tolerance for unreadable input.
func InFiles(files []string, terms []string) []Match {
	lowerTerms := make([]string, len(terms))
	for i, t := range terms {
		lowerTerms[i] = strings.ToLower(t)
	}

	var matches []Match
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			continue
		}

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNum := 0
		for sc.Scan() {
			lineNum++
			lowerLine := strings.ToLower(sc.Text())
			if containsAll(lowerLine, lowerTerms) {
				matches = append(matches, Match{
					File: path,
					Line: lineNum,
					Text: strings.TrimSpace(sc.Text()),
				})
			}
		}
		f.Close()
	}
	return matches
}

func containsAll(line string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(line, t) {
			return false
		}
	}
	return true
}
