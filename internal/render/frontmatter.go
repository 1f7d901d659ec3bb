package render

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Front matter formats
const (
	FormatNone = ""
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// FrontMatter is the metadata block at the top of a document.
type FrontMatter struct {
	Format string
	Fields map[string]any
}

// Title returns the front matter title field, if it is a non-empty string.
func (f FrontMatter) Title() string {
	if s, ok := f.Fields["title"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// SplitFrontMatter separates a leading "---" YAML or "+++" TOML block from
// the body. Sources without a closed block are returned unchanged.
func SplitFrontMatter(source string) (FrontMatter, string, error) {
	if !strings.Contains(source, "\n") {
		return FrontMatter{}, source, nil
	}

	var delim, format string
	switch {
	case hasFence(source, "---"):
		delim, format = "---", FormatYAML
	case hasFence(source, "+++"):
		delim, format = "+++", FormatTOML
	default:
		return FrontMatter{}, source, nil
	}

	rest := source[strings.IndexByte(source, '\n')+1:]
	block, body, ok := cutFence(rest, delim)
	if !ok {
		return FrontMatter{}, source, nil
	}

	fields := make(map[string]any)
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal([]byte(block), &fields)
	case FormatTOML:
		err = toml.Unmarshal([]byte(block), &fields)
	}
	if err != nil {
		return FrontMatter{}, source, fmt.Errorf("invalid %s front matter: %w", format, err)
	}
	return FrontMatter{Format: format, Fields: fields}, body, nil
}

func hasFence(source, delim string) bool {
	line, _, _ := strings.Cut(source, "\n")
	return strings.TrimRight(line, " \t\r") == delim
}

// cutFence finds the closing delimiter line and returns the block before it
// and the body after it.
func cutFence(s, delim string) (string, string, bool) {
	offset := 0
	for offset <= len(s) {
		line, next, found := strings.Cut(s[offset:], "\n")
		if strings.TrimRight(line, " \t\r") == delim {
			body := ""
			if found {
				body = next
			}
			return s[:offset], body, true
		}
		if !found {
			break
		}
		offset += len(line) + 1
	}
	return "", "", false
}
