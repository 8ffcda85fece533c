package qc

import (
	"fmt"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
)

// Constraints are the deterministic rules evaluated alongside the AI
// verdict. Both must pass before content is persisted.
type Constraints struct {
	// DisallowBacklinks fails content containing any external link.
	DisallowBacklinks bool

	// RequiredBacklink, when set, must appear in the content as an exact
	// anchor-text/URL pair, verbatim.
	RequiredBacklink *domain.BacklinkRequest

	// AllowMultipleBacklinks suppresses the single-external-link rule
	// while still requiring the specific customer backlink. Used for
	// customer regenerations, where the published base content already
	// carries earlier backlinks.
	AllowMultipleBacklinks bool

	// InternalLinkCandidates are the site slugs an internal link may
	// point at. Non-empty requires exactly one internal link to one of
	// them; empty means any internal link is a failure.
	InternalLinkCandidates []string
}

// Validate applies the hard constraints to the content and returns the
// list of violations. An empty result means the content passes.
func (c Constraints) Validate(content string) []string {
	links := ExtractLinks(content)

	var issues []string
	issues = append(issues, c.validateBacklinks(links)...)
	issues = append(issues, c.validateInternalLinks(links)...)
	return issues
}

func (c Constraints) validateBacklinks(links []Link) []string {
	var external []Link
	for _, link := range links {
		if link.External() {
			external = append(external, link)
		}
	}

	if c.DisallowBacklinks {
		if len(external) > 0 {
			return []string{fmt.Sprintf("backlinks are disallowed but content contains %d external link(s)", len(external))}
		}
		return nil
	}

	if c.RequiredBacklink == nil {
		return nil
	}

	var issues []string

	found := false
	for _, link := range external {
		if link.URL == c.RequiredBacklink.TargetURL && link.Anchor == c.RequiredBacklink.AnchorText {
			found = true
			break
		}
	}
	if !found {
		issues = append(issues, fmt.Sprintf(
			"required backlink %q -> %s not found verbatim",
			c.RequiredBacklink.AnchorText,
			c.RequiredBacklink.TargetURL,
		))
	}

	if !c.AllowMultipleBacklinks && len(external) != 1 {
		issues = append(issues, fmt.Sprintf(
			"content must contain exactly one external link, found %d",
			len(external),
		))
	}

	return issues
}

func (c Constraints) validateInternalLinks(links []Link) []string {
	var internal []Link
	for _, link := range links {
		if link.Internal() {
			internal = append(internal, link)
		}
	}

	if len(c.InternalLinkCandidates) == 0 {
		if len(internal) > 0 {
			return []string{fmt.Sprintf("internal links are disabled but content contains %d", len(internal))}
		}
		return nil
	}

	if len(internal) != 1 {
		return []string{fmt.Sprintf("exactly one internal link required, found %d", len(internal))}
	}

	for _, candidate := range c.InternalLinkCandidates {
		if internal[0].URL == candidate {
			return nil
		}
	}

	return []string{fmt.Sprintf("internal link %s does not match any supplied candidate", internal[0].URL)}
}
