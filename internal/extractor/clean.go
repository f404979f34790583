package extractor

import (
	"regexp"
	"strings"
)

// Readability output still carries site chrome that looks bad in print:
// Wikipedia [edit] links, external anchors, collapsed spacing around
// inline elements. cleanContent strips those before rendering.
func cleanContent(html, pageURL string) string {
	if strings.Contains(pageURL, "wikipedia.org") {
		html = removeWikipediaArtifacts(html)
	}
	html = unwrapExternalLinks(html)
	html = normalizeSpacing(html)
	html = removeEmptyTags(html)
	return html
}

var (
	wikiEditParaRe  = regexp.MustCompile(`\[<p><a\s+href="[^"]*action=edit[^"]*">edit</a>\]</p>`)
	wikiEditLinkRe  = regexp.MustCompile(`\[<a\s+href="[^"]*action=edit[^"]*">edit</a>\]`)
	wikiCitationRe  = regexp.MustCompile(`\[<a\s+href="[^"]*citation[^"]*">citation needed</a>\]`)
	wikiMetaLinkRe  = regexp.MustCompile(`(?i)\[<a\s+href="[^"]*">(?:update|when\?|by whom\?|clarification needed)</a>\]`)
	anchorRe        = regexp.MustCompile(`<a\s+href="([^"]*)"[^>]*>([^<]+)</a>`)
	spaceAfterARe   = regexp.MustCompile(`</a>([A-Z])`)
	spaceAfterPreRe = regexp.MustCompile(`</pre>([A-Za-z])`)
	spaceAfterCdRe  = regexp.MustCompile(`</code>([A-Za-z])`)
	interTagSpaceRe = regexp.MustCompile(`>\s{2,}<`)
	emptyParaRe     = regexp.MustCompile(`<p>\s*</p>|<p/>`)
	emptyTableRe    = regexp.MustCompile(`<table>\s*</table>|<table/>`)
	blankLinesRe    = regexp.MustCompile(`\n\s*\n\s*\n`)
)

func removeWikipediaArtifacts(html string) string {
	html = wikiEditParaRe.ReplaceAllString(html, "")
	html = wikiEditLinkRe.ReplaceAllString(html, "")
	html = wikiCitationRe.ReplaceAllString(html, "")
	html = wikiMetaLinkRe.ReplaceAllString(html, "")
	return html
}

// unwrapExternalLinks replaces outbound anchor tags with their text;
// in-page anchors (href="#...") are kept for navigation.
func unwrapExternalLinks(html string) string {
	return anchorRe.ReplaceAllStringFunc(html, func(tag string) string {
		m := anchorRe.FindStringSubmatch(tag)
		if m == nil {
			return tag
		}
		if strings.HasPrefix(m[1], "#") {
			return tag
		}
		return m[2]
	})
}

func normalizeSpacing(html string) string {
	html = spaceAfterARe.ReplaceAllString(html, "</a> $1")
	html = spaceAfterPreRe.ReplaceAllString(html, "</pre> $1")
	html = spaceAfterCdRe.ReplaceAllString(html, "</code> $1")
	html = interTagSpaceRe.ReplaceAllString(html, "> <")
	return html
}

func removeEmptyTags(html string) string {
	html = emptyParaRe.ReplaceAllString(html, "")
	html = emptyTableRe.ReplaceAllString(html, "")
	html = blankLinesRe.ReplaceAllString(html, "\n\n")
	return html
}
