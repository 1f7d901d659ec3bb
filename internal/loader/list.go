package loader

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

// DocumentPattern matches the files offered for opening.
const DocumentPattern = "**/*.{md,markdown,mdown,txt}"

// List returns the documents under dir matching DocumentPattern, as sorted
// slash-separated paths relative to dir. Hidden directories are skipped.
func (l *Loader) List(ctx context.Context, dir string) ([]string, error) {
	var (
		mu      sync.Mutex
		matches []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := doublestar.Match(DocumentPattern, strings.ToLower(rel)); ok {
			mu.Lock()
			matches = append(matches, rel)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}
