package feed

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ansybl/ansybl-go/sign"
)

// ProtocolMajor is the major version of the Ansybl generation this library
// implements.
const ProtocolMajor = 1

// Validator runs the structural and semantic rule tiers over a decoded
// document. It never mutates its input.
type Validator struct {
	// Now is the clock used for date-sanity checks; defaults to time.Now.
	Now func() time.Time
}

// Validate runs both tiers with the default clock.
func Validate(doc map[string]any) Report {
	return (&Validator{}).Validate(doc)
}

// Validate returns a Report with Valid == (len(Errors) == 0). Warnings never
// block validity on their own; callers may opt into strict promotion.
func (v *Validator) Validate(doc map[string]any) Report {
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	rep := Report{Valid: true}

	v.structural(doc, &rep)
	v.semantic(doc, &rep, now())
	return rep
}

var requiredFeedFields = []string{"version", "title", "home_page_url", "feed_url", "author", "items"}

func (v *Validator) structural(doc map[string]any, rep *Report) {
	for _, f := range requiredFeedFields {
		if _, ok := doc[f]; !ok {
			rep.add(Issue{
				Code:        CodeMissingRequiredField,
				Message:     fmt.Sprintf("feed is missing required field %q", f),
				Severity:    SeverityError,
				Category:    CategoryValidation,
				Path:        f,
				Suggestions: []string{fmt.Sprintf("add a %q field to the feed", f)},
				Recoverable: true,
			})
		}
	}

	for _, f := range []string{"home_page_url", "feed_url"} {
		if s, ok := asString(doc[f]); ok && !validURL(s) {
			rep.add(Issue{
				Code:        CodeInvalidURLFormat,
				Message:     fmt.Sprintf("%s is not an absolute http(s) URL", f),
				Severity:    SeverityError,
				Category:    CategoryValidation,
				Path:        f,
				Value:       s,
				Suggestions: []string{"use an absolute URL with an http or https scheme"},
				Recoverable: true,
			})
		}
	}

	if author, ok := doc["author"]; ok {
		am, ok := asMap(author)
		if !ok {
			rep.add(Issue{
				Code:        CodeMissingRequiredField,
				Message:     "author must be an object",
				Severity:    SeverityError,
				Category:    CategoryValidation,
				Path:        "author",
				Recoverable: true,
			})
		} else {
			for _, f := range []string{"name", "public_key"} {
				if s, _ := asString(am[f]); s == "" {
					rep.add(Issue{
						Code:        CodeMissingRequiredField,
						Message:     fmt.Sprintf("author is missing required field %q", f),
						Severity:    SeverityError,
						Category:    CategoryValidation,
						Path:        "author." + f,
						Recoverable: true,
					})
				}
			}
			checkExtensionKeys(am, "author", rep)
			if pk, _ := asString(am["public_key"]); pk != "" {
				if err := sign.ValidateKeyFormat(pk, sign.RolePublic); err != nil {
					rep.add(Issue{
						Code:        CodeInvalidPublicKey,
						Message:     fmt.Sprintf("author public key is malformed: %v", err),
						Severity:    SeverityError,
						Category:    CategorySignature,
						Path:        "author.public_key",
						Value:       pk,
						Suggestions: []string{`encode the key as "ed25519:<base64>"`},
						Recoverable: true,
					})
				}
			}
		}
	}

	if rawItems, ok := doc["items"]; ok {
		items, ok := asSlice(rawItems)
		if !ok {
			rep.add(Issue{
				Code:        CodeMissingRequiredField,
				Message:     "items must be an array",
				Severity:    SeverityError,
				Category:    CategoryValidation,
				Path:        "items",
				Recoverable: true,
			})
			return
		}
		for i, raw := range items {
			v.structuralItem(i, raw, rep)
		}
	}

	checkExtensionKeys(doc, "", rep)
}

func (v *Validator) structuralItem(i int, raw any, rep *Report) {
	im, ok := asMap(raw)
	if !ok {
		rep.add(Issue{
			Code:        CodeMissingRequiredField,
			Message:     "item must be an object",
			Severity:    SeverityError,
			Category:    CategoryValidation,
			Path:        itemPath(i, ""),
			Recoverable: true,
		})
		return
	}
	for _, f := range []string{"id", "url", "date_published"} {
		if s, _ := asString(im[f]); s == "" {
			rep.add(Issue{
				Code:        CodeMissingRequiredField,
				Message:     fmt.Sprintf("item is missing required field %q", f),
				Severity:    SeverityError,
				Category:    CategoryValidation,
				Path:        itemPath(i, f),
				Recoverable: true,
			})
		}
	}
	if s, ok := asString(im["url"]); ok && s != "" && !validURL(s) {
		rep.add(Issue{
			Code:        CodeInvalidURLFormat,
			Message:     "item url is not an absolute http(s) URL",
			Severity:    SeverityError,
			Category:    CategoryValidation,
			Path:        itemPath(i, "url"),
			Value:       s,
			Recoverable: true,
		})
	}
	hasContent := false
	for _, f := range []string{"content_text", "content_html", "content_markdown"} {
		if s, _ := asString(im[f]); s != "" {
			hasContent = true
			break
		}
	}
	if !hasContent {
		rep.add(Issue{
			Code:        CodeMissingRequiredField,
			Message:     "item needs at least one of content_text, content_html, content_markdown",
			Severity:    SeverityError,
			Category:    CategoryValidation,
			Path:        itemPath(i, "content_text"),
			Suggestions: []string{"add a content_text, content_html, or content_markdown field"},
			Recoverable: true,
		})
	}
	checkExtensionKeys(im, itemPath(i, ""), rep)
	if inter, ok := asMap(im["interactions"]); ok {
		checkExtensionKeys(inter, itemPath(i, "interactions"), rep)
	}
	if atts, ok := asSlice(im["attachments"]); ok {
		for j, rawAtt := range atts {
			if am, ok := asMap(rawAtt); ok {
				checkExtensionKeys(am, itemPath(i, "attachments["+strconv.Itoa(j)+"]"), rep)
			}
		}
	}
}

func (v *Validator) semantic(doc map[string]any, rep *Report, now time.Time) {
	if ver, ok := asString(doc["version"]); ok {
		if major, ok := extractMajor(ver); !ok || major != ProtocolMajor {
			rep.add(Issue{
				Code:        CodeVersionMismatch,
				Message:     fmt.Sprintf("document version %q is not protocol major %d", ver, ProtocolMajor),
				Severity:    SeverityWarning,
				Category:    CategoryCompatibility,
				Path:        "version",
				Value:       ver,
				Suggestions: []string{"migrate the document to the current protocol version"},
			})
		}
	}

	home, _ := asString(doc["home_page_url"])
	feedURL, _ := asString(doc["feed_url"])
	if home != "" && home == feedURL {
		rep.add(Issue{
			Code:     CodeFeedURLEqualsHome,
			Message:  "feed_url and home_page_url are identical",
			Severity: SeverityWarning,
			Category: CategoryValidation,
			Path:     "feed_url",
			Value:    feedURL,
		})
	}

	if s, _ := asString(doc["signature"]); s == "" {
		rep.add(Issue{
			Code:        CodeMissingSignature,
			Message:     "feed is unsigned; content is untrusted",
			Severity:    SeverityWarning,
			Category:    CategorySignature,
			Path:        "signature",
			Suggestions: []string{"sign the feed so consumers can verify its origin"},
		})
	}

	items, _ := asSlice(doc["items"])
	seen := make(map[string]int, len(items))
	for i, raw := range items {
		im, ok := asMap(raw)
		if !ok {
			continue
		}
		v.semanticItem(i, im, rep, now, seen)
	}
}

func (v *Validator) semanticItem(i int, im map[string]any, rep *Report, now time.Time, seen map[string]int) {
	if id, _ := asString(im["id"]); id != "" {
		if first, dup := seen[id]; dup {
			rep.add(Issue{
				Code:        CodeDuplicateItemID,
				Message:     fmt.Sprintf("item id %q already used by items[%d]", id, first),
				Severity:    SeverityError,
				Category:    CategoryValidation,
				Path:        itemPath(i, "id"),
				Value:       id,
				Suggestions: []string{"give every item a feed-unique id"},
				Recoverable: true,
			})
		} else {
			seen[id] = i
		}
	}

	var published time.Time
	if s, _ := asString(im["date_published"]); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			rep.add(Issue{
				Code:        CodeInvalidDateFormat,
				Message:     "date_published is not RFC 3339",
				Severity:    SeverityError,
				Category:    CategoryValidation,
				Path:        itemPath(i, "date_published"),
				Value:       s,
				Suggestions: []string{"use an RFC 3339 timestamp, e.g. 2026-01-02T15:04:05Z"},
				Recoverable: true,
			})
		} else {
			published = t
			// Small allowance for clock skew between producer and consumer.
			if t.After(now.Add(5 * time.Minute)) {
				rep.add(Issue{
					Code:     CodeFutureDate,
					Message:  "date_published is in the future",
					Severity: SeverityWarning,
					Category: CategoryValidation,
					Path:     itemPath(i, "date_published"),
					Value:    s,
				})
			}
		}
	}
	if s, _ := asString(im["date_modified"]); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		switch {
		case err != nil:
			rep.add(Issue{
				Code:        CodeInvalidDateFormat,
				Message:     "date_modified is not RFC 3339",
				Severity:    SeverityError,
				Category:    CategoryValidation,
				Path:        itemPath(i, "date_modified"),
				Value:       s,
				Recoverable: true,
			})
		case !published.IsZero() && t.Before(published):
			rep.add(Issue{
				Code:     CodeModifiedBeforePub,
				Message:  "date_modified predates date_published",
				Severity: SeverityWarning,
				Category: CategoryValidation,
				Path:     itemPath(i, "date_modified"),
				Value:    s,
			})
		}
	}

	if s, _ := asString(im["signature"]); s == "" {
		rep.add(Issue{
			Code:     CodeMissingSignature,
			Message:  "item is unsigned; content is untrusted",
			Severity: SeverityWarning,
			Category: CategorySignature,
			Path:     itemPath(i, "signature"),
		})
	}

	if s, _ := asString(im["uuid"]); s != "" {
		if _, err := uuid.Parse(s); err != nil {
			rep.add(Issue{
				Code:     CodeInvalidUUID,
				Message:  "uuid is not a valid UUID",
				Severity: SeverityWarning,
				Category: CategoryValidation,
				Path:     itemPath(i, "uuid"),
				Value:    s,
			})
		}
	}

	atts, _ := asSlice(im["attachments"])
	for j, rawAtt := range atts {
		am, ok := asMap(rawAtt)
		attPath := itemPath(i, "attachments["+strconv.Itoa(j)+"]")
		if !ok {
			rep.add(Issue{
				Code:        CodeMissingRequiredField,
				Message:     "attachment must be an object",
				Severity:    SeverityError,
				Category:    CategoryValidation,
				Path:        attPath,
				Recoverable: true,
			})
			continue
		}
		for _, f := range []string{"url", "mime_type"} {
			if s, _ := asString(am[f]); s == "" {
				rep.add(Issue{
					Code:        CodeMissingRequiredField,
					Message:     fmt.Sprintf("attachment is missing required field %q", f),
					Severity:    SeverityError,
					Category:    CategoryValidation,
					Path:        attPath + "." + f,
					Recoverable: true,
				})
			}
		}
		if s, _ := asString(am["mime_type"]); s != "" && !validMimeType(s) {
			rep.add(Issue{
				Code:        CodeInvalidMimeType,
				Message:     fmt.Sprintf("mime_type %q does not match the type/subtype token grammar", s),
				Severity:    SeverityWarning,
				Category:    CategoryValidation,
				Path:        attPath + ".mime_type",
				Value:       s,
				Suggestions: []string{`use a registered media type such as "image/png"`},
			})
		}
	}
}

// checkExtensionKeys flags malformed extension keys. A well-formed extension
// key is a single underscore followed by at least one character; its value is
// opaque and never inspected.
func checkExtensionKeys(m map[string]any, base string, rep *Report) {
	for k := range m {
		if !strings.HasPrefix(k, "_") {
			continue
		}
		if k == "_" || strings.HasPrefix(k, "__") {
			path := k
			if base != "" {
				path = base + "." + k
			}
			rep.add(Issue{
				Code:        CodeInvalidExtension,
				Message:     fmt.Sprintf("extension key %q must be a single underscore followed by a name", k),
				Severity:    SeverityWarning,
				Category:    CategoryValidation,
				Path:        path,
				Suggestions: []string{"rename the key to _name with a single leading underscore"},
			})
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// mimeToken matches an RFC 6838 restricted name on each side of the slash.
var mimeToken = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9!#$&^_.+-]{0,126}/[A-Za-z0-9][A-Za-z0-9!#$&^_.+-]{0,126}$`)

func validMimeType(s string) bool {
	return mimeToken.MatchString(s)
}

// versionPattern recognizes the three interchangeable version surfaces well
// enough to extract the major component; full parsing belongs to the version
// package.
var versionPattern = regexp.MustCompile(`(?:/version/|^)(\d+)\.\d+`)

func extractMajor(s string) (int, bool) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
