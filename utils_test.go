package davgate_test

import (
	"regexp"
	"testing"

	"github.com/synodriver/davgate"
)

func TestMatchPrefix(t *testing.T) {
	tt := []struct {
		Name    string
		Pattern string
		Input   string
		Want    bool
	}{
		{Name: "anchored match", Pattern: "^tmp", Input: "tmp123", Want: true},
		{Name: "anchored miss", Pattern: "^tmp", Input: "my-tmp", Want: false},
		{Name: "unanchored still matches at start only", Pattern: "tmp", Input: "my-tmp", Want: false},
		{Name: "unanchored match at start", Pattern: "tmp", Input: "tmpfile", Want: true},
		{Name: "dotfile rule", Pattern: `^\..*`, Input: ".hidden", Want: true},
		{Name: "dotfile rule miss", Pattern: `^\..*`, Input: "visible", Want: false},
		{Name: "alternation first branch", Pattern: `\..*|^tmp`, Input: ".DS_Store", Want: true},
		{Name: "alternation second branch", Pattern: `\..*|^tmp`, Input: "tmp1", Want: true},
		{Name: "alternation miss", Pattern: `\..*|^tmp`, Input: "readme.txt", Want: false},
		{Name: "empty input", Pattern: "^a", Input: "", Want: false},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			re := regexp.MustCompile(tc.Pattern)
			if got := davgate.MatchPrefix(re, tc.Input); got != tc.Want {
				t.Errorf("MatchPrefix(%q, %q) = %v, want %v", tc.Pattern, tc.Input, got, tc.Want)
			}
		})
	}
}

func TestIsValidPath(t *testing.T) {
	invalidUTF8 := string([]byte{'a', 0xff, 'b'})

	tt := []struct {
		Name string
		Path string
		Want bool
	}{
		// Basics
		{Name: "root path", Path: "/", Want: false},
		{Name: "empty path", Path: "", Want: false},
		{Name: "leading slash", Path: "/some/path", Want: false},
		{Name: "ends with slash", Path: "some/path/", Want: false},

		// Double dots anywhere are invalid
		{Name: "double dots segment", Path: "../", Want: false},
		{Name: "double dots in middle segment", Path: "a/../b", Want: false},
		{Name: "double dots in filename", Path: "a/b..c", Want: false},

		// Single dot segments are invalid
		{Name: "single dot segment", Path: "a/./b", Want: false},
		{Name: "single dot only", Path: ".", Want: false},

		// Double slashes invalid
		{Name: "double slash", Path: "a//b", Want: false},

		// Forbidden characters
		{Name: "contains backslash", Path: `some\path/file.ext`, Want: false},
		{Name: "contains hash", Path: "some/path#frag", Want: false},
		{Name: "contains question mark", Path: "some/path?x=1", Want: false},
		{Name: "contains tilde", Path: "some/~path/file.ext", Want: false},

		// Control chars / NUL
		{Name: "contains NUL", Path: "some\x00path/file.ext", Want: false},
		{Name: "contains DEL", Path: "some\x7fpath/file.ext", Want: false},
		{Name: "contains tab", Path: "some\tpath/file.ext", Want: false},
		{Name: "contains newline", Path: "some\npath/file.ext", Want: false},

		// UTF-8 validity
		{Name: "invalid utf8", Path: invalidUTF8, Want: false},

		// Valid examples
		{Name: "simple valid", Path: "some/path/file.ext", Want: true},
		{Name: "hidden file valid", Path: ".hidden/file", Want: true},
		{Name: "space is allowed", Path: "My Documents/report.pdf", Want: true},
		{Name: "unicode valid", Path: "docs/résumé.txt", Want: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			if got := davgate.IsValidPath(tc.Path); got != tc.Want {
				t.Errorf("IsValidPath(%q) = %v, want %v", tc.Path, got, tc.Want)
			}
		})
	}
}
