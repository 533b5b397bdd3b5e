package feed

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/ansybl/ansybl-go/canonical"
	"github.com/ansybl/ansybl-go/cidutil"
	"github.com/ansybl/ansybl-go/sign"
)

// ParseOptions steer one run of the pipeline.
type ParseOptions struct {
	// VerifySignatures checks the feed signature and every item signature
	// against the author's public key.
	VerifySignatures bool
	// StrictMode fails the document atomically on any item error and
	// promotes warnings to errors. When false, structurally invalid items
	// degrade gracefully: valid items survive, invalid ones are reported.
	StrictMode bool
	// PreserveExtensions carries underscore-prefixed fields through into the
	// document model at every nesting level.
	PreserveExtensions bool
}

// ItemSignature is the verification outcome for one item.
type ItemSignature struct {
	ItemID string `json:"item_id"`
	Signed bool   `json:"signed"`
	Valid  bool   `json:"valid"`
}

// SignatureReport aggregates signature verification over a document.
type SignatureReport struct {
	AllValid       bool            `json:"all_valid"`
	FeedValid      bool            `json:"feed_valid"`
	ItemSignatures []ItemSignature `json:"item_signatures"`
}

// Degradation records an item excluded from the model in non-strict mode.
type Degradation struct {
	ItemIndex int     `json:"item_index"`
	ItemID    string  `json:"item_id,omitempty"`
	Issues    []Issue `json:"issues"`
}

// Result is the aggregate outcome of a Parse call.
type Result struct {
	Success      bool             `json:"success"`
	Document     *Feed            `json:"document,omitempty"`
	Errors       []Issue          `json:"errors"`
	Warnings     []Issue          `json:"warnings"`
	Signatures   *SignatureReport `json:"signatures,omitempty"`
	Degradations []Degradation    `json:"degradations,omitempty"`
	// ContentID is the CIDv1 of the document's canonical bytes, set on
	// success.
	ContentID string `json:"content_id,omitempty"`
}

// Parser orchestrates ingestion: decode, validate, verify signatures, build
// the document model.
type Parser struct {
	validator Validator
}

// NewParser returns a Parser with the default validator.
func NewParser() *Parser {
	return &Parser{}
}

// Parse accepts raw text ([]byte or string), a decoded map, or an existing
// *Feed, and runs the full pipeline.
func (p *Parser) Parse(input any, opts ParseOptions) Result {
	doc, fatal := normalizeInput(input)
	if fatal != nil {
		return Result{Success: false, Errors: []Issue{*fatal}}
	}

	rep := p.validator.Validate(doc)
	res := Result{Warnings: rep.Warnings}

	if opts.StrictMode {
		// Atomic: any error or warning blocks the document.
		res.Errors = append(rep.Errors, promote(rep.Warnings)...)
		res.Warnings = nil
		if len(res.Errors) > 0 {
			res.Success = false
			return res
		}
	} else {
		var excluded map[int][]Issue
		res.Errors, excluded = partitionDegradable(rep.Errors)
		res.Degradations = degradationList(excluded)
	}

	res.Success = len(res.Errors) == 0
	if !res.Success {
		return res
	}

	dropped := make(map[int]bool, len(res.Degradations))
	for _, d := range res.Degradations {
		dropped[d.ItemIndex] = true
	}
	res.Document = buildFeed(doc, dropped, opts.PreserveExtensions)

	if opts.VerifySignatures {
		sigRep, findings := verifyDocument(doc)
		res.Signatures = sigRep
		if opts.StrictMode && len(findings) > 0 {
			// Atomic, like every other strict failure: no partial document.
			res.Errors = append(res.Errors, promote(findings)...)
			res.Success = false
			res.Document = nil
			return res
		}
		res.Warnings = append(res.Warnings, findings...)
	}

	if canonicalBytes, err := canonical.Serialize(doc); err == nil {
		res.ContentID = cidutil.ContentID(canonicalBytes)
	}
	return res
}

// ParseMultiple parses each document independently. One failure never aborts
// the batch.
func (p *Parser) ParseMultiple(inputs []any, opts ParseOptions) []Result {
	out := make([]Result, len(inputs))
	for i, input := range inputs {
		out[i] = p.Parse(input, opts)
	}
	return out
}

func normalizeInput(input any) (map[string]any, *Issue) {
	switch x := input.(type) {
	case *Feed:
		return x.ToMap(), nil
	case map[string]any:
		return x, nil
	case string:
		return decodeText([]byte(x))
	case []byte:
		return decodeText(x)
	case json.RawMessage:
		return decodeText(x)
	default:
		return nil, &Issue{
			Code:        CodeInvalidJSON,
			Message:     fmt.Sprintf("unsupported input type %T", input),
			Severity:    SeverityError,
			Category:    CategoryParse,
			Suggestions: []string{"pass raw JSON text, a decoded object, or a *feed.Feed"},
		}
	}
}

func decodeText(data []byte) (map[string]any, *Issue) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &Issue{
			Code:        CodeEmptyDocument,
			Message:     "document is empty",
			Severity:    SeverityError,
			Category:    CategoryParse,
			Suggestions: []string{"provide a non-empty Ansybl document"},
		}
	}
	v, err := canonical.Decode(data)
	if err != nil {
		return nil, &Issue{
			Code:     CodeInvalidJSON,
			Message:  fmt.Sprintf("document is not valid JSON: %v", err),
			Severity: SeverityError,
			Category: CategoryParse,
			Suggestions: []string{
				"check for unbalanced braces or brackets",
				"check for trailing commas and unquoted keys",
			},
		}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &Issue{
			Code:        CodeInvalidJSON,
			Message:     "top-level value must be an object",
			Severity:    SeverityError,
			Category:    CategoryParse,
			Suggestions: []string{"wrap the document in a JSON object"},
		}
	}
	return m, nil
}

func promote(warnings []Issue) []Issue {
	out := make([]Issue, len(warnings))
	for i, w := range warnings {
		w.Severity = SeverityError
		out[i] = w
	}
	return out
}

// partitionDegradable splits validation errors into document-level errors and
// per-item degradations. Item-scoped structural errors degrade; document
// integrity errors (duplicate ids among them) never do.
func partitionDegradable(errors []Issue) ([]Issue, map[int][]Issue) {
	var kept []Issue
	excluded := make(map[int][]Issue)
	for _, iss := range errors {
		idx, ok := itemIndexOf(iss.Path)
		if !ok || iss.Code == CodeDuplicateItemID {
			kept = append(kept, iss)
			continue
		}
		excluded[idx] = append(excluded[idx], iss)
	}
	return kept, excluded
}

func itemIndexOf(path string) (int, bool) {
	if !strings.HasPrefix(path, "items[") {
		return 0, false
	}
	end := strings.IndexByte(path, ']')
	if end < 0 {
		return 0, false
	}
	n := 0
	for _, c := range path[len("items["):end] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func degradationList(excluded map[int][]Issue) []Degradation {
	if len(excluded) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(excluded))
	for idx := range excluded {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	out := make([]Degradation, 0, len(indexes))
	for _, idx := range indexes {
		d := Degradation{ItemIndex: idx, Issues: excluded[idx]}
		for _, iss := range excluded[idx] {
			if id, ok := iss.Value.(string); ok && strings.HasSuffix(iss.Path, ".id") {
				d.ItemID = id
			}
		}
		out = append(out, d)
	}
	return out
}

// verifyDocument checks the feed signature and every item signature using the
// canonical signing-payload projections. Verification never panics; failures
// surface as report entries plus signature-category warnings.
func verifyDocument(doc map[string]any) (*SignatureReport, []Issue) {
	var findings []Issue
	rep := &SignatureReport{}

	publicKey := ""
	if am, ok := asMap(doc["author"]); ok {
		publicKey, _ = asString(am["public_key"])
	}

	feedSig, _ := asString(doc["signature"])
	if feedSig != "" {
		payload, err := canonical.SignatureData(doc, canonical.KindFeed)
		rep.FeedValid = err == nil && sign.VerifyPayload([]byte(payload), feedSig, publicKey)
		if !rep.FeedValid {
			findings = append(findings, Issue{
				Code:        CodeSignatureFailed,
				Message:     "feed signature did not verify",
				Severity:    SeverityWarning,
				Category:    CategorySignature,
				Path:        "signature",
				Suggestions: []string{"re-sign the feed after any field mutation"},
			})
		}
	}

	items, _ := asSlice(doc["items"])
	allItemsValid := true
	for i, raw := range items {
		im, ok := asMap(raw)
		if !ok {
			continue
		}
		id, _ := asString(im["id"])
		entry := ItemSignature{ItemID: id}
		if itemSig, _ := asString(im["signature"]); itemSig != "" {
			entry.Signed = true
			payload, err := canonical.SignatureData(im, canonical.KindItem)
			entry.Valid = err == nil && sign.VerifyPayload([]byte(payload), itemSig, publicKey)
		}
		if !entry.Valid {
			allItemsValid = false
			if entry.Signed {
				findings = append(findings, Issue{
					Code:        CodeSignatureFailed,
					Message:     fmt.Sprintf("item %q signature did not verify", id),
					Severity:    SeverityWarning,
					Category:    CategorySignature,
					Path:        itemPath(i, "signature"),
					Suggestions: []string{"re-sign the item after any field mutation"},
				})
			}
		}
		rep.ItemSignatures = append(rep.ItemSignatures, entry)
	}

	rep.AllValid = rep.FeedValid && allItemsValid
	return rep, findings
}

// buildFeed converts the raw decoded map into the typed model, capturing
// extension fields when requested and skipping degraded items.
func buildFeed(doc map[string]any, dropped map[int]bool, preserveExtensions bool) *Feed {
	f := &Feed{}
	f.Version, _ = asString(doc["version"])
	f.Title, _ = asString(doc["title"])
	f.HomePageURL, _ = asString(doc["home_page_url"])
	f.FeedURL, _ = asString(doc["feed_url"])
	f.Description, _ = asString(doc["description"])
	f.Icon, _ = asString(doc["icon"])
	f.Language, _ = asString(doc["language"])
	f.Signature, _ = asString(doc["signature"])
	f.DateSigned, _ = asString(doc["date_signed"])

	if am, ok := asMap(doc["author"]); ok {
		f.Author = buildAuthor(am, preserveExtensions)
	}
	items, _ := asSlice(doc["items"])
	for i, raw := range items {
		if dropped[i] {
			continue
		}
		im, ok := asMap(raw)
		if !ok {
			continue
		}
		f.Items = append(f.Items, buildItem(im, preserveExtensions))
	}
	if preserveExtensions {
		f.Extensions = captureExtensions(doc)
	}
	return f
}

func buildAuthor(am map[string]any, preserveExtensions bool) Author {
	a := Author{}
	a.Name, _ = asString(am["name"])
	a.URL, _ = asString(am["url"])
	a.Avatar, _ = asString(am["avatar"])
	a.PublicKey, _ = asString(am["public_key"])
	if preserveExtensions {
		a.Extensions = captureExtensions(am)
	}
	return a
}

func buildItem(im map[string]any, preserveExtensions bool) Item {
	it := Item{}
	it.ID, _ = asString(im["id"])
	it.URL, _ = asString(im["url"])
	it.Title, _ = asString(im["title"])
	it.Summary, _ = asString(im["summary"])
	it.ContentText, _ = asString(im["content_text"])
	it.ContentHTML, _ = asString(im["content_html"])
	it.ContentMarkdown, _ = asString(im["content_markdown"])
	it.DatePublished, _ = asString(im["date_published"])
	it.DateModified, _ = asString(im["date_modified"])
	it.InReplyTo, _ = asString(im["in_reply_to"])
	it.Signature, _ = asString(im["signature"])
	it.UUID, _ = asString(im["uuid"])

	switch tags := im["tags"].(type) {
	case []any:
		for _, t := range tags {
			if s, ok := asString(t); ok {
				it.Tags = append(it.Tags, s)
			}
		}
	case []string:
		it.Tags = append(it.Tags, tags...)
	}
	if atts, ok := asSlice(im["attachments"]); ok {
		for _, raw := range atts {
			am, ok := asMap(raw)
			if !ok {
				continue
			}
			att := Attachment{}
			att.URL, _ = asString(am["url"])
			att.MimeType, _ = asString(am["mime_type"])
			for k, v := range am {
				if k == "url" || k == "mime_type" {
					continue
				}
				if att.Metadata == nil {
					att.Metadata = make(map[string]any)
				}
				att.Metadata[k] = v
			}
			it.Attachments = append(it.Attachments, att)
		}
	}
	if inter, ok := asMap(im["interactions"]); ok {
		it.Interactions = &Interactions{
			RepliesCount: toInt64(inter["replies_count"]),
			LikesCount:   toInt64(inter["likes_count"]),
			SharesCount:  toInt64(inter["shares_count"]),
		}
		if preserveExtensions {
			it.Interactions.Extensions = captureExtensions(inter)
		}
	}
	if preserveExtensions {
		it.Extensions = captureExtensions(im)
	}
	return it
}

func captureExtensions(m map[string]any) Extensions {
	var ext Extensions
	for k, v := range m {
		if strings.HasPrefix(k, "_") {
			if ext == nil {
				ext = make(Extensions)
			}
			ext[k] = v
		}
	}
	return ext
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}
