// Package section applies id-addressed edits to a paper's ordered section list.
// Inputs are never modified; callers persist the returned slice only on success.
package section

import (
	"github.com/xxxsen/papershelf/internal/model"
	appErr "github.com/xxxsen/papershelf/internal/pkg/errors"
)

// Find returns the index of the first section with the given id.
func Find(sections []model.Section, targetID string) (int, bool) {
	for i := range sections {
		if sections[i].ID == targetID {
			return i, true
		}
	}
	return -1, false
}

// ReplaceContent returns a copy of sections where the first section matching
// targetID carries content instead of its previous content.
func ReplaceContent(sections []model.Section, targetID string, content []string) ([]model.Section, error) {
	idx, ok := Find(sections, targetID)
	if !ok {
		return nil, appErr.ErrSectionNotFound
	}
	out := make([]model.Section, len(sections))
	copy(out, sections)
	replaced := make([]string, len(content))
	copy(replaced, content)
	out[idx].Content = replaced
	return out, nil
}

// Remove returns the sections that do not match targetID, in their original order.
func Remove(sections []model.Section, targetID string) ([]model.Section, error) {
	out := make([]model.Section, 0, len(sections))
	for _, s := range sections {
		if s.ID == targetID {
			continue
		}
		out = append(out, s)
	}
	if len(out) == len(sections) {
		return nil, appErr.ErrSectionNotFound
	}
	return out, nil
}
