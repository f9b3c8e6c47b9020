// Package organizer evaluates destination-path templates and performs safe,
// collision-suffixed file moves (spec.md §4.C).
package organizer

import (
	"fmt"
	"regexp"
	"strings"
)

// Resolver produces the value for one named token, given a candidate. It
// returns ("", false) when the token has no value for this candidate, which
// triggers empty-group collapse.
type Resolver func(candidate interface{}) (string, bool)

// registration pairs a resolver with the non-empty sample value
// ValidateTemplate substitutes in its synthetic dry run.
type registration struct {
	resolve Resolver
	sample  string
}

// Registry holds named token resolvers, registered at startup.
type Registry struct {
	resolvers map[string]registration
}

// NewRegistry creates an empty token registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]registration)}
}

// Register binds a resolver to a token name (without braces). sample is the
// non-empty placeholder value used by ValidateTemplate's synthetic dry run
// (e.g. "Books" for a {Category} token) — every registered token must have
// one so validation can exercise the "populated" path through the template.
func (r *Registry) Register(name string, fn Resolver, sample string) {
	r.resolvers[name] = registration{resolve: fn, sample: sample}
}

var tokenPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// CalculatePath substitutes every {Token} in template using the registry's
// resolvers against candidate, collapsing conditional (...) groups whose
// tokens all resolve empty, and returns the result as a path relative to the
// library root.
func (r *Registry) CalculatePath(candidate interface{}, template string) string {
	resolved := r.resolveTokens(candidate, template)
	return collapseGroups(resolved)
}

// resolveTokens replaces every token with its resolved value (or "" if the
// token is unknown or resolves empty), without touching conditional-group
// syntax — that's handled separately by collapseGroups so a group can see
// whether ALL of its tokens came back empty.
func (r *Registry) resolveTokens(candidate interface{}, template string) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(tok string) string {
		name := tok[1 : len(tok)-1]
		reg, ok := r.resolvers[name]
		if !ok {
			return ""
		}
		val, ok := reg.resolve(candidate)
		if !ok {
			return ""
		}
		return val
	})
}

// collapseGroups removes each (...) conditional group, along with one
// adjacent (leading-preferred) space, when every token the group contained
// resolved to empty/whitespace. Because resolveTokens already substituted
// tokens in-place, "every token resolved empty" is equivalent to "the
// group's interior, once tokens are gone, is blank" — but we need to detect
// this on the ORIGINAL template structure (parens survive resolveTokens), so
// collapseGroups operates on the resolved string which still carries the
// literal parens from the template; a group collapses when its interior,
// after substitution, is empty or all-whitespace.
func collapseGroups(s string) string {
	pos := 0
	for {
		idx := strings.IndexByte(s[pos:], '(')
		if idx == -1 {
			break
		}
		start := pos + idx
		depth := 1
		end := -1
		for i := start + 1; i < len(s); i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					end = i
				}
			}
			if end != -1 {
				break
			}
		}
		if end == -1 {
			// Unbalanced paren: stop trying to collapse, leave as-is.
			break
		}

		interior := s[start+1 : end]
		if strings.TrimSpace(interior) == "" {
			// Collapse the group and one adjacent space — prefer eating a
			// leading space so "X (Y)" -> "X" rather than "X " for an empty
			// group, per spec.md §4.C example 5.
			removeStart := start
			if removeStart > 0 && s[removeStart-1] == ' ' {
				removeStart--
			}
			removeEnd := end + 1
			s = s[:removeStart] + s[removeEnd:]
			pos = removeStart
			continue
		}

		// Keep the group as-is, parens included, and continue scanning from
		// just inside it so nested groups are still checked.
		pos = start + 1
	}
	return s
}

// invalidPathChars are characters CalculatePath's output must never contain
// on any common filesystem.
var invalidPathChars = regexp.MustCompile(`[<>:"|?*\x00-\x1f]`)

// ValidateTemplate evaluates template against a synthetic sample token set
// — every registered token's sample value, standing in for a fully-populated
// candidate — and verifies the result is a non-empty relative path free of
// invalid characters, returning a diagnostic error string otherwise.
func (r *Registry) ValidateTemplate(template string) error {
	result := collapseGroups(tokenPattern.ReplaceAllStringFunc(template, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if reg, ok := r.resolvers[name]; ok {
			return reg.sample
		}
		return ""
	}))

	trimmed := strings.TrimSpace(result)
	if trimmed == "" {
		return fmt.Errorf("template produces an empty path")
	}
	if strings.HasPrefix(trimmed, "/") {
		return fmt.Errorf("template must produce a relative path, got %q", trimmed)
	}
	if strings.Contains(trimmed, "..") {
		return fmt.Errorf("template must not contain path traversal segments: %q", trimmed)
	}
	if invalidPathChars.MatchString(trimmed) {
		return fmt.Errorf("template produces a path with invalid characters: %q", trimmed)
	}
	return nil
}
