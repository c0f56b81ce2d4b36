package relations

import (
	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/schema"
)

// SourceContext describes the operation a relation reference is resolved
// from: which model owns the payload, in which locale, and at which
// publication status (when one is known).
type SourceContext struct {
	Model  *schema.Model
	Locale string // "" when the source carries no locale
	Status domain.Status
	// StatusKnown marks Status as a concrete resolution context rather than
	// an absent one; sources without draft-and-publish leave it false.
	StatusKnown bool
}

// ResolveTargetLocale computes the locale a reference must resolve against.
// The reference's explicit locale wins, then the source locale, then the
// system default, but only when the target schema is localized; otherwise the
// locale is forced to empty (stored as null). When both source and target are
// localized the resolved locale must equal the source locale.
func ResolveTargetLocale(refLocale string, source SourceContext, target *schema.Model, defaultLocale string) (string, error) {
	if !target.IsLocalized() {
		return "", nil
	}

	resolved := refLocale
	if resolved == "" {
		resolved = source.Locale
	}
	if resolved == "" {
		resolved = defaultLocale
	}

	if source.Model != nil && source.Model.IsLocalized() && source.Locale != "" && resolved != source.Locale {
		return "", &LocaleMismatchError{SourceLocale: source.Locale, TargetLocale: resolved}
	}
	return resolved, nil
}

// ResolveTargetStatuses computes the publication status set a reference must
// resolve against. The set may legitimately hold both statuses: a source
// without a draft/publish concept binds to whichever version of a versioned
// target currently exists.
func ResolveTargetStatuses(refStatus string, source SourceContext, target *schema.Model) []domain.Status {
	if !target.HasDraftAndPublish() {
		return []domain.Status{domain.StatusPublished}
	}

	sourceVersioned := source.Model != nil && source.Model.HasDraftAndPublish()
	if sourceVersioned && source.StatusKnown {
		return []domain.Status{source.Status}
	}
	if refStatus != "" {
		return []domain.Status{domain.ParseStatus(refStatus)}
	}
	if !sourceVersioned {
		return []domain.Status{domain.StatusDraft, domain.StatusPublished}
	}
	return []domain.Status{domain.StatusDraft}
}
