package catalog

import "regexp"

// isbnPattern matches a bare ISBN-10 or ISBN-13 once separators are
// stripped. Queries that look like an ISBN switch providers into their
// ISBN lookup mode.
var (
	isbnPattern    = regexp.MustCompile(`^\d{10}(\d{3})?$`)
	isbnSeparators = regexp.MustCompile(`[-\s]`)
)

// NormalizeISBN strips hyphens and whitespace from the query and reports
// whether what remains is an ISBN-10 or ISBN-13.
func NormalizeISBN(query string) (string, bool) {
	cleaned := isbnSeparators.ReplaceAllString(query, "")
	if isbnPattern.MatchString(cleaned) {
		return cleaned, true
	}
	return "", false
}
