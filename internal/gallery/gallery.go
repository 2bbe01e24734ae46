// Package gallery holds the fixed set of templates a photo can be placed into.
package gallery

import "fmt"

// Template describes one gallery entry.
type Template struct {
	ID         int
	Name       string
	Thumbnail  string
	Dimensions string
}

const placeholderThumbnail = "/placeholder.svg"

var templates = []Template{
	{ID: 1, Name: "Instagram Square", Thumbnail: placeholderThumbnail, Dimensions: "1080 x 1080"},
	{ID: 2, Name: "Story Template", Thumbnail: placeholderThumbnail, Dimensions: "1080 x 1920"},
	{ID: 3, Name: "Facebook Post", Thumbnail: placeholderThumbnail, Dimensions: "1200 x 630"},
	{ID: 4, Name: "Twitter Post", Thumbnail: placeholderThumbnail, Dimensions: "1200 x 675"},
}

// All returns a copy of the gallery in display order.
func All() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// Lookup returns the template with the given id.
func Lookup(id int) (Template, error) {
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("unknown template id %d", id)
}
