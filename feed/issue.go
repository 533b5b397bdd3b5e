package feed

import "strconv"

// Severity grades a finding. Warnings never block validity on their own;
// strict mode may promote them.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category is the finding taxonomy from the protocol error design.
type Category string

const (
	CategoryParse         Category = "parse"
	CategoryValidation    Category = "validation"
	CategorySignature     Category = "signature"
	CategoryCompatibility Category = "compatibility"
)

// Stable finding codes. Callers branch on these, never on messages.
const (
	CodeEmptyDocument        = "EMPTY_DOCUMENT"
	CodeInvalidJSON          = "INVALID_JSON"
	CodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	CodeInvalidURLFormat     = "INVALID_URL_FORMAT"
	CodeInvalidDateFormat    = "INVALID_DATE_FORMAT"
	CodeDuplicateItemID      = "DUPLICATE_ITEM_ID"
	CodeInvalidExtension     = "INVALID_EXTENSION_FIELD"
	CodeSignatureFailed      = "SIGNATURE_VERIFICATION_FAILED"
	CodeInvalidPublicKey     = "INVALID_PUBLIC_KEY"
	CodeUnsupportedVersion   = "UNSUPPORTED_VERSION"
	CodeMigrationPathMissing = "MIGRATION_PATH_NOT_FOUND"
	CodeMigrationDataLoss    = "MIGRATION_DATA_LOSS"
	CodeMigrationFieldAdded  = "MIGRATION_FIELD_ADDED"

	// Semantic-tier warning codes.
	CodeMissingSignature   = "MISSING_SIGNATURE"
	CodeFutureDate         = "FUTURE_DATE_PUBLISHED"
	CodeModifiedBeforePub  = "MODIFIED_BEFORE_PUBLISHED"
	CodeInvalidMimeType    = "INVALID_MIME_TYPE"
	CodeFeedURLEqualsHome  = "FEED_URL_EQUALS_HOME_PAGE"
	CodeInvalidUUID        = "INVALID_UUID"
	CodeVersionMismatch    = "VERSION_MAJOR_MISMATCH"
)

// Issue is a single structured finding: code, human message, severity,
// category, the offending field path and value, plus remediation suggestions.
type Issue struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Category    Category `json:"category"`
	Path        string   `json:"path,omitempty"`
	Value       any      `json:"value,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

// Report is the validation outcome. Valid is true exactly when Errors is
// empty; warnings alone never invalidate a document.
type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Report) add(iss Issue) {
	if iss.Severity == SeverityError {
		r.Errors = append(r.Errors, iss)
	} else {
		r.Warnings = append(r.Warnings, iss)
	}
	r.Valid = len(r.Errors) == 0
}

// itemPath builds a path like "items[2].id".
func itemPath(index int, field string) string {
	p := "items[" + strconv.Itoa(index) + "]"
	if field != "" {
		p += "." + field
	}
	return p
}
