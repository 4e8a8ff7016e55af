package discovery

import (
	"bufio"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/docingest/internal/model"
)

var (
	h1Pattern         = regexp.MustCompile(`^#\s+(.+)$`)
	h2Pattern         = regexp.MustCompile(`^##\s+(.+)$`)
	blockquotePattern = regexp.MustCompile(`^>\s*(.+)$`)
	linkPattern       = regexp.MustCompile(`^[-*]\s+\[([^\]]+)\]\(([^)]+)\)(?::\s*(.+))?$`)
)

// Index is a parsed llms.txt file.
type Index struct {
	Title    string
	Summary  string
	Sections []model.IndexSection

	// Entries lists every link in document order, including links that
	// appear before the first section.
	Entries []model.IndexEntry
}

// Parse parses llms.txt text. Entry URLs are resolved against origin; entries
// whose URL cannot be parsed are dropped.
//
// The first non-blank line must be a level-1 heading. Blockquote lines that
// directly follow it are joined into the summary. Any other prose is ignored.
func Parse(text string, origin *url.URL) (*Index, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	scanner := bufio.NewScanner(strings.NewReader(text))
	// A single line may be as long as the whole accepted index.
	scanner.Buffer(make([]byte, 64*1024), MaxIndexSize)

	idx := &Index{}
	titleSeen := false
	inSummary := false
	var summary []string
	var current *model.IndexSection

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !titleSeen {
			m := h1Pattern.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: first line is not a level-1 heading", ErrMalformedIndex)
			}
			idx.Title = strings.TrimSpace(m[1])
			titleSeen, inSummary = true, true
			continue
		}

		if inSummary {
			if m := blockquotePattern.FindStringSubmatch(line); m != nil {
				summary = append(summary, strings.TrimSpace(m[1]))
				continue
			}
			inSummary = false
		}

		if m := h2Pattern.FindStringSubmatch(line); m != nil {
			if current != nil {
				idx.Sections = append(idx.Sections, *current)
			}
			current = &model.IndexSection{Name: strings.TrimSpace(m[1]), Entries: []model.IndexEntry{}}
			continue
		}

		if m := linkPattern.FindStringSubmatch(line); m != nil {
			entry, ok := newEntry(m, origin)
			if !ok {
				continue
			}
			idx.Entries = append(idx.Entries, entry)
			if current != nil {
				current.Entries = append(current.Entries, entry)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}
	if !titleSeen {
		return nil, fmt.Errorf("%w: empty index", ErrMalformedIndex)
	}

	if current != nil {
		idx.Sections = append(idx.Sections, *current)
	}
	idx.Summary = strings.Join(summary, " ")
	return idx, nil
}

func newEntry(m []string, origin *url.URL) (model.IndexEntry, bool) {
	ref, err := url.Parse(strings.TrimSpace(m[2]))
	if err != nil {
		return model.IndexEntry{}, false
	}
	target := ref
	if origin != nil {
		target = origin.ResolveReference(ref)
	}
	return model.IndexEntry{
		Name:  strings.TrimSpace(m[1]),
		URL:   target.String(),
		Notes: strings.TrimSpace(m[3]),
	}, true
}
