// Package feed implements the Ansybl document model, the validation engine,
// and the parsing pipeline.
package feed

// Extensions is the path-annotated side-map of opaque extension values
// attached to a typed entity. Keys are the underscore-prefixed field names at
// the entity's own level; values are kept opaque, including any nested
// structure, and MUST NOT be interpreted by validation, parsing, or
// migration logic.
type Extensions map[string]any

// Feed is the top-level Ansybl document.
type Feed struct {
	Version     string `json:"version"`
	Title       string `json:"title"`
	HomePageURL string `json:"home_page_url"`
	FeedURL     string `json:"feed_url"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Language    string `json:"language,omitempty"`
	Author      Author `json:"author"`
	Items       []Item `json:"items"`
	// Signature is detached: it covers the feed's signing payload, never
	// itself. DateSigned is the stored signing timestamp included in that
	// payload.
	Signature  string     `json:"signature,omitempty"`
	DateSigned string     `json:"date_signed,omitempty"`
	Extensions Extensions `json:"-"`
}

// Author identifies the feed's author and signing identity.
type Author struct {
	Name       string     `json:"name"`
	URL        string     `json:"url,omitempty"`
	Avatar     string     `json:"avatar,omitempty"`
	PublicKey  string     `json:"public_key"`
	Extensions Extensions `json:"-"`
}

// Item is one entry in a feed. Dates are RFC 3339 strings, kept in wire form
// so signed bytes survive a model round trip untouched.
type Item struct {
	ID              string        `json:"id"`
	URL             string        `json:"url"`
	Title           string        `json:"title,omitempty"`
	Summary         string        `json:"summary,omitempty"`
	ContentText     string        `json:"content_text,omitempty"`
	ContentHTML     string        `json:"content_html,omitempty"`
	ContentMarkdown string        `json:"content_markdown,omitempty"`
	DatePublished   string        `json:"date_published"`
	DateModified    string        `json:"date_modified,omitempty"`
	Tags            []string      `json:"tags,omitempty"`
	Attachments     []Attachment  `json:"attachments,omitempty"`
	Interactions    *Interactions `json:"interactions,omitempty"`
	InReplyTo       string        `json:"in_reply_to,omitempty"`
	Signature       string        `json:"signature,omitempty"`
	UUID            string        `json:"uuid,omitempty"`
	Extensions      Extensions    `json:"-"`
}

// Attachment is an external resource referenced by an item. Metadata carries
// any additional keys verbatim, extension fields included.
type Attachment struct {
	URL      string         `json:"url"`
	MimeType string         `json:"mime_type"`
	Metadata map[string]any `json:"-"`
}

// Interactions are aggregate engagement counters.
type Interactions struct {
	RepliesCount int64      `json:"replies_count"`
	LikesCount   int64      `json:"likes_count"`
	SharesCount  int64      `json:"shares_count"`
	Extensions   Extensions `json:"-"`
}

// HasContent reports whether the item carries at least one content field.
func (i *Item) HasContent() bool {
	return i.ContentText != "" || i.ContentHTML != "" || i.ContentMarkdown != ""
}
