package canonical

import "fmt"

// EntityKind selects the signing-payload projection for a document entity.
type EntityKind string

const (
	KindFeed EntityKind = "feed"
	KindItem EntityKind = "item"
)

// Signing payloads are built from an explicit per-kind whitelist, never the
// whole object. The detached signature field is excluded to avoid
// circularity, and absent optional fields are omitted entirely rather than
// serialized as null.
//
// The feed payload includes date_signed: the signing timestamp is a stored,
// signed field so a verifier can reconstruct the exact payload that was
// signed.
var payloadFields = map[EntityKind][]string{
	KindFeed: {
		"author",
		"date_signed",
		"description",
		"feed_url",
		"home_page_url",
		"icon",
		"language",
		"title",
		"version",
	},
	KindItem: {
		"attachments",
		"content_html",
		"content_markdown",
		"content_text",
		"date_modified",
		"date_published",
		"id",
		"in_reply_to",
		"summary",
		"tags",
		"title",
		"url",
		"uuid",
	},
}

// SignatureData returns the canonical signing payload for entity: the
// canonical serialization of the kind-specific field projection.
func SignatureData(entity map[string]any, kind EntityKind) (string, error) {
	fields, ok := payloadFields[kind]
	if !ok {
		return "", fmt.Errorf("canonical: unknown entity kind %q", kind)
	}
	projection := make(map[string]any, len(fields))
	for _, f := range fields {
		v, present := entity[f]
		if !present || v == nil {
			continue
		}
		if f == "author" {
			// The author's own detached fields never enter the payload
			// indirectly; only its stable identity fields are signed.
			if a, ok := v.(map[string]any); ok {
				v = projectAuthor(a)
			}
		}
		projection[f] = v
	}
	out, err := Serialize(projection)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func projectAuthor(a map[string]any) map[string]any {
	out := make(map[string]any, 3)
	for _, f := range []string{"name", "url", "avatar", "public_key"} {
		if v, ok := a[f]; ok && v != nil {
			out[f] = v
		}
	}
	return out
}
