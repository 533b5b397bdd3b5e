package feed

import "github.com/ansybl/ansybl-go/canonical"

// ToMap renders the feed as a plain value tree, extension fields included.
// Absent optionals are omitted entirely, matching the canonical-form rule
// that optional fields are never serialized as null.
func (f *Feed) ToMap() map[string]any {
	m := map[string]any{
		"version":       f.Version,
		"title":         f.Title,
		"home_page_url": f.HomePageURL,
		"feed_url":      f.FeedURL,
		"author":        f.Author.ToMap(),
	}
	if f.Description != "" {
		m["description"] = f.Description
	}
	if f.Icon != "" {
		m["icon"] = f.Icon
	}
	if f.Language != "" {
		m["language"] = f.Language
	}
	items := make([]any, len(f.Items))
	for i := range f.Items {
		items[i] = f.Items[i].ToMap()
	}
	m["items"] = items
	if f.Signature != "" {
		m["signature"] = f.Signature
	}
	if f.DateSigned != "" {
		m["date_signed"] = f.DateSigned
	}
	for k, v := range f.Extensions {
		m[k] = v
	}
	return m
}

func (a *Author) ToMap() map[string]any {
	m := map[string]any{
		"name":       a.Name,
		"public_key": a.PublicKey,
	}
	if a.URL != "" {
		m["url"] = a.URL
	}
	if a.Avatar != "" {
		m["avatar"] = a.Avatar
	}
	for k, v := range a.Extensions {
		m[k] = v
	}
	return m
}

func (i *Item) ToMap() map[string]any {
	m := map[string]any{
		"id":             i.ID,
		"url":            i.URL,
		"date_published": i.DatePublished,
	}
	if i.Title != "" {
		m["title"] = i.Title
	}
	if i.Summary != "" {
		m["summary"] = i.Summary
	}
	if i.ContentText != "" {
		m["content_text"] = i.ContentText
	}
	if i.ContentHTML != "" {
		m["content_html"] = i.ContentHTML
	}
	if i.ContentMarkdown != "" {
		m["content_markdown"] = i.ContentMarkdown
	}
	if i.DateModified != "" {
		m["date_modified"] = i.DateModified
	}
	if len(i.Tags) > 0 {
		m["tags"] = i.Tags
	}
	if len(i.Attachments) > 0 {
		atts := make([]any, len(i.Attachments))
		for j := range i.Attachments {
			atts[j] = i.Attachments[j].ToMap()
		}
		m["attachments"] = atts
	}
	if i.Interactions != nil {
		inter := map[string]any{
			"replies_count": i.Interactions.RepliesCount,
			"likes_count":   i.Interactions.LikesCount,
			"shares_count":  i.Interactions.SharesCount,
		}
		for k, v := range i.Interactions.Extensions {
			inter[k] = v
		}
		m["interactions"] = inter
	}
	if i.InReplyTo != "" {
		m["in_reply_to"] = i.InReplyTo
	}
	if i.Signature != "" {
		m["signature"] = i.Signature
	}
	if i.UUID != "" {
		m["uuid"] = i.UUID
	}
	for k, v := range i.Extensions {
		m[k] = v
	}
	return m
}

func (a *Attachment) ToMap() map[string]any {
	m := map[string]any{
		"url":       a.URL,
		"mime_type": a.MimeType,
	}
	for k, v := range a.Metadata {
		m[k] = v
	}
	return m
}

// Marshal renders the feed as canonical bytes.
func Marshal(f *Feed) ([]byte, error) {
	return canonical.Serialize(f.ToMap())
}
