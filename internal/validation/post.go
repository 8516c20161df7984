// Package validation holds field-level input validation for write operations.
package validation

import (
	"sort"
	"strings"
)

const maxTitleLen = 255

// FieldErrors maps field names to human-readable messages.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "invalid input"
	}
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// PostInput is the validated shape shared by post create and update.
type PostInput struct {
	Title      string
	Excerpt    string
	Content    string
	CategoryID uint
}

// ValidatePost checks required fields and limits. A nil return means the
// input is acceptable; referential checks (category existence) happen in the
// service against the data store.
func ValidatePost(in PostInput) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(in.Title) == "" {
		errs["title"] = "title is required"
	} else if len(in.Title) > maxTitleLen {
		errs["title"] = "title must not exceed 255 characters"
	}
	if strings.TrimSpace(in.Excerpt) == "" {
		errs["excerpt"] = "excerpt is required"
	}
	if strings.TrimSpace(in.Content) == "" {
		errs["content"] = "content is required"
	}
	if in.CategoryID == 0 {
		errs["category_id"] = "category_id is required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateCategory checks category create/update input.
func ValidateCategory(name string) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(name) == "" {
		errs["name"] = "name is required"
	} else if len(name) > maxTitleLen {
		errs["name"] = "name must not exceed 255 characters"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
