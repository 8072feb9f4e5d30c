package extractor

import (
	"regexp"
	"strings"
	"time"

	"pansave/internal"
)

const (
	// passwordWindow is how many characters around a URL match are
	// searched for a passcode
	passwordWindow = 200

	// titleMaxRunes caps an accepted title
	titleMaxRunes = 50

	// unknownTitle is the sentinel for text with no usable title line
	unknownTitle = "unknown"
)

var (
	htmlTagRe = regexp.MustCompile(`<[^>]+>`)
	urlRe     = regexp.MustCompile(`https?://\S+`)
	alnumRe   = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// Extractor scans free-form text for netdisk share links. It is a pure
// scanner: the same text always yields the same candidates, and a text
// without links yields an empty result, never an error.
type Extractor struct {
	platforms        []compiledPlatform
	passwordMatchers []*regexp.Regexp
	sizeMatchers     []*regexp.Regexp
}

// New creates an Extractor with the built-in platform patterns
func New() *Extractor {
	platforms, err := compileBuiltins()
	if err != nil {
		// Built-in patterns are compile-time constants; a failure here
		// is a programming error.
		panic(err)
	}

	passwords := make([]*regexp.Regexp, 0, len(passwordPatterns))
	for _, expr := range passwordPatterns {
		passwords = append(passwords, regexp.MustCompile(expr))
	}

	sizes := make([]*regexp.Regexp, 0, len(sizeHintPatterns))
	for _, expr := range sizeHintPatterns {
		sizes = append(sizes, regexp.MustCompile(expr))
	}

	return &Extractor{
		platforms:        platforms,
		passwordMatchers: passwords,
		sizeMatchers:     sizes,
	}
}

// NewWithOverlay creates an Extractor whose built-in patterns are extended
// by a YAML pattern file
func NewWithOverlay(path string) (*Extractor, error) {
	e := New()
	extra, err := loadOverlay(path)
	if err != nil {
		return nil, err
	}
	for i := range e.platforms {
		if patterns, ok := extra[e.platforms[i].platform]; ok {
			e.platforms[i].patterns = append(e.platforms[i].patterns, patterns...)
		}
	}
	return e, nil
}

// Extract returns every candidate link found in text. The same true link
// captured by more than one pattern variant yields duplicate candidates;
// the store's dedup makes that harmless.
func (e *Extractor) Extract(text string) []internal.LinkRecord {
	var records []internal.LinkRecord
	now := time.Now()

	for _, cp := range e.platforms {
		for _, re := range cp.patterns {
			// Matching by offset keeps repeated occurrences of the same URL
			// tied to their own passcode and title context
			for _, loc := range re.FindAllStringIndex(text, -1) {
				records = append(records, internal.LinkRecord{
					Platform:    cp.platform,
					URL:         text[loc[0]:loc[1]],
					Password:    e.extractPassword(text, loc[0], loc[1]),
					Title:       e.extractTitle(text, loc[0]),
					SizeHint:    e.extractSizeHint(text),
					ExtractedAt: now,
					Status:      internal.StatusPending,
				})
			}
		}
	}

	return records
}

// extractPassword searches a bounded window around the URL occurrence at
// [matchStart, matchEnd) for a passcode. Labeled patterns win over the bare
// alphanumeric fallback; the first pattern that yields a valid 4-8
// alphanumeric capture is accepted.
func (e *Extractor) extractPassword(text string, matchStart, matchEnd int) string {
	start := matchStart - passwordWindow
	if start < 0 {
		start = 0
	}
	end := matchEnd + passwordWindow
	if end > len(text) {
		end = len(text)
	}
	// URLs are stripped so the fallback pattern cannot pick tokens out of
	// the link itself
	window := urlRe.ReplaceAllString(text[start:end], " ")

	for _, re := range e.passwordMatchers {
		m := re.FindStringSubmatch(window)
		if m == nil {
			continue
		}
		password := m[1]
		if len(password) >= 4 && len(password) <= 8 && alnumRe.MatchString(password) {
			return password
		}
	}
	return ""
}

// extractTitle takes the line containing the URL occurrence at matchStart,
// strips markup and embedded URLs, and accepts the remainder if its length
// lands in [5,100)
func (e *Extractor) extractTitle(text string, matchStart int) string {
	lineStart := strings.LastIndexByte(text[:matchStart], '\n') + 1
	lineEnd := strings.IndexByte(text[matchStart:], '\n')
	if lineEnd == -1 {
		lineEnd = len(text)
	} else {
		lineEnd += matchStart
	}

	clean := htmlTagRe.ReplaceAllString(text[lineStart:lineEnd], "")
	clean = urlRe.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)

	runes := []rune(clean)
	if len(runes) >= 5 && len(runes) < 100 {
		if len(runes) > titleMaxRunes {
			runes = runes[:titleMaxRunes]
		}
		return string(runes)
	}
	return unknownTitle
}

// extractSizeHint finds a human-readable size annotation anywhere in the
// text; absence is normal
func (e *Extractor) extractSizeHint(text string) string {
	for _, re := range e.sizeMatchers {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
