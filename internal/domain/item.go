package domain

// Item is one stored lost/found report, read-only to the matcher.
// Metadata carries location, date, category, contact info and any
// free-form extensions the reporter supplied.
type Item struct {
	ID          string
	Description string
	ImageURL    string
	Metadata    map[string]any
}

// HasImage reports whether the item carries an image reference.
func (i Item) HasImage() bool { return i.ImageURL != "" }
