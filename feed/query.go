package feed

import "time"

// ContentType selects which content representation a filter requires.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeHTML     ContentType = "html"
	ContentTypeMarkdown ContentType = "markdown"
)

// Filter narrows an item query. Zero-valued fields do not constrain; set
// fields combine with AND semantics.
type Filter struct {
	// Tags requires every listed tag to be present on the item.
	Tags []string
	// Since/Until bound date_published (inclusive).
	Since *time.Time
	Until *time.Time
	// HasAttachments requires the item to have (or lack) attachments.
	HasAttachments *bool
	// ContentType requires a specific content representation.
	ContentType ContentType
	// InReplyTo matches items replying to the given target.
	InReplyTo string
	// Limit caps the result length; 0 means unlimited.
	Limit int
}

// Items returns the document's items matching filter, in document order. The
// query is pure and restartable: it never mutates the document.
func Items(doc *Feed, filter Filter) []Item {
	if doc == nil {
		return nil
	}
	var out []Item
	for i := range doc.Items {
		item := &doc.Items[i]
		if !matches(item, filter) {
			continue
		}
		out = append(out, *item)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

func matches(item *Item, f Filter) bool {
	for _, want := range f.Tags {
		if !hasTag(item, want) {
			return false
		}
	}
	if f.Since != nil || f.Until != nil {
		published, err := time.Parse(time.RFC3339, item.DatePublished)
		if err != nil {
			return false
		}
		if f.Since != nil && published.Before(*f.Since) {
			return false
		}
		if f.Until != nil && published.After(*f.Until) {
			return false
		}
	}
	if f.HasAttachments != nil && *f.HasAttachments != (len(item.Attachments) > 0) {
		return false
	}
	switch f.ContentType {
	case ContentTypeText:
		if item.ContentText == "" {
			return false
		}
	case ContentTypeHTML:
		if item.ContentHTML == "" {
			return false
		}
	case ContentTypeMarkdown:
		if item.ContentMarkdown == "" {
			return false
		}
	}
	if f.InReplyTo != "" && item.InReplyTo != f.InReplyTo {
		return false
	}
	return true
}

func hasTag(item *Item, tag string) bool {
	for _, t := range item.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
