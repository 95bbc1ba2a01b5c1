package scanner

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestScanContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			"es module imports",
			"import 'lodash'\nimport \"react\"\n",
			[]string{"lodash", "react"},
		},
		{
			"require calls",
			"const _ = require 'lodash'\n",
			[]string{"lodash"},
		},
		{
			"first match per line only",
			"import 'lodash' import 'react'\n",
			[]string{"lodash"},
		},
		{
			"duplicates collapse",
			"import 'axios'\nimport 'axios'\n",
			[]string{"axios"},
		},
		{
			"hyphenated names",
			"import 'left-pad'\n",
			[]string{"left-pad"},
		},
		{
			"scoped or relative paths do not match",
			"import './local'\nimport '@scope/pkg'\n",
			nil,
		},
		{
			"case sensitive",
			"import 'Lodash'\n",
			[]string{"Lodash"},
		},
		{
			"no imports",
			"const x = 1\n",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScanContent([]byte(tt.content))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d imports %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for _, w := range tt.want {
				if _, ok := got[w]; !ok {
					t.Errorf("missing import %q in %v", w, got)
				}
			}
		})
	}
}

// Minified bundles put megabytes on a single line; scanning must neither
// stop at that line nor miss the lines after it.
func TestScanContentVeryLongLine(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("import 'first'\n")
	buf.Write(bytes.Repeat([]byte("x"), 2*1024*1024))
	buf.WriteString("require 'minified'\n")
	buf.WriteString("import 'last'\n")

	got := ScanContent(buf.Bytes())
	for _, want := range []string{"first", "minified", "last"} {
		if _, ok := got[want]; !ok {
			t.Errorf("missing %q in %v", want, got)
		}
	}
}

func TestScanFileMissing(t *testing.T) {
	res := ScanFile(filepath.Join(t.TempDir(), "nope.js"))
	if !res.Skipped {
		t.Error("expected missing file to be skipped")
	}
	if len(res.Imports) != 0 {
		t.Errorf("expected empty import set, got %v", res.Imports)
	}
}

func TestScanFileBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.js")
	if err := os.WriteFile(path, []byte{0x00, 0xFF, 0x00, 0xFE, 0x01}, 0644); err != nil {
		t.Fatal(err)
	}

	res := ScanFile(path)
	if !res.Skipped {
		t.Error("expected binary file to be skipped")
	}
	if len(res.Imports) != 0 {
		t.Errorf("expected empty import set, got %v", res.Imports)
	}
}

func TestScanFileUTF16(t *testing.T) {
	// UTF-16 LE with BOM: import 'lodash'
	text := "import 'lodash'\n"
	buf := []byte{0xFF, 0xFE}
	for _, r := range text {
		buf = append(buf, byte(r), 0x00)
	}

	path := filepath.Join(t.TempDir(), "utf16.js")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}

	res := ScanFile(path)
	if res.Skipped {
		t.Fatal("expected UTF-16 file to decode, got skipped")
	}
	if _, ok := res.Imports["lodash"]; !ok {
		t.Errorf("expected lodash import, got %v", res.Imports)
	}
}
