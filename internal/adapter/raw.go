package adapter

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/docingest/internal/model"
)

// rawTypes are media types stored as text without HTML extraction.
var rawTypes = map[string]bool{
	"text/markdown":   true,
	"text/x-markdown": true,
	"text/plain":      true,
}

// IsRaw reports whether a response should bypass the registry. Index
// entries often point at .md files served as text/plain or
// application/octet-stream, so the URL extension also counts.
func IsRaw(contentType string, u *url.URL) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && rawTypes[strings.ToLower(mediaType)] {
		return true
	}
	if u == nil || strings.HasPrefix(strings.ToLower(mediaType), "text/html") {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return ext == ".md" || ext == ".markdown" || ext == ".txt"
}

// RawOutcome builds the outcome of a Markdown or plain-text body. The
// content is the text itself; the TOC lists Markdown headings of level 1
// and 2, and the title is the first level-1 heading or the file name.
func RawOutcome(body []byte, u *url.URL) model.AdapterOutcome {
	text := strings.TrimPrefix(string(body), "\ufeff")

	toc := make([]model.TocEntry, 0)
	lastH1 := -1
	title := ""
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		level, heading := markdownHeading(trimmed)
		if level == 0 || level > 2 || heading == "" {
			continue
		}
		entry := model.TocEntry{Title: heading, Path: model.Slugify(heading)}
		if level == 1 {
			if title == "" {
				title = heading
			}
			toc = append(toc, entry)
			lastH1 = len(toc) - 1
			continue
		}
		if lastH1 >= 0 {
			toc[lastH1].Children = append(toc[lastH1].Children, entry)
			continue
		}
		toc = append(toc, entry)
	}

	if title == "" && u != nil {
		base := path.Base(u.Path)
		title = strings.TrimSuffix(base, path.Ext(base))
		if title == "." || title == "/" {
			title = u.Host
		}
	}

	return model.AdapterOutcome{
		AdapterName: NameRaw,
		TOC:         toc,
		ContentHTML: text,
		Metadata:    model.PageMetadata{Title: title},
	}
}

// markdownHeading parses an ATX heading ("## Title ##").
func markdownHeading(line string) (int, string) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level == len(line) || line[level] != ' ' {
		return 0, ""
	}
	heading := strings.TrimSpace(line[level:])
	// Optional closing sequence.
	if i := strings.LastIndex(heading, " #"); i >= 0 && strings.Trim(heading[i:], " #") == "" {
		heading = strings.TrimSpace(heading[:i])
	}
	return level, heading
}
