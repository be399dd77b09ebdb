package domain

import "slices"

// UserSettings is the small per-user settings document mirrored alongside
// the book records. Today it only carries the ordered category labels used
// to group the "own" list.
type UserSettings struct {
	Categories []string `json:"categories"`
}

// HasCategory reports whether the label is one of the user's categories.
func (s *UserSettings) HasCategory(label string) bool {
	return slices.Contains(s.Categories, label)
}

// ValidCategories filters a book's category labels down to those that still
// exist in the settings document. Books referencing a deleted category are
// demoted to uncategorized at read time; the stored record is not rewritten.
func (s *UserSettings) ValidCategories(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	valid := make([]string, 0, len(labels))
	for _, l := range labels {
		if s.HasCategory(l) {
			valid = append(valid, l)
		}
	}
	return valid
}
