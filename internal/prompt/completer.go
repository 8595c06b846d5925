package prompt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PathCompleter completes file and directory names relative to the
// working directory. Directories complete with a trailing separator.
type PathCompleter struct {
	// Root is used in place of the working directory when set.
	Root string
}

// Do implements readline.AutoCompleter.
func (c PathCompleter) Do(line []rune, pos int) ([][]rune, int) {
	typed := string(line[:pos])
	dir, prefix := filepath.Split(typed)

	lookup := dir
	if strings.HasPrefix(lookup, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			lookup = filepath.Join(home, lookup[2:])
		}
	}
	if !filepath.IsAbs(lookup) && c.Root != "" {
		lookup = filepath.Join(c.Root, lookup)
	}
	if lookup == "" {
		lookup = "."
	}

	entries, err := os.ReadDir(lookup)
	if err != nil {
		return nil, 0
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if e.IsDir() {
			name += string(filepath.Separator)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([][]rune, 0, len(names))
	for _, name := range names {
		out = append(out, []rune(name[len(prefix):]))
	}
	return out, len([]rune(prefix))
}
