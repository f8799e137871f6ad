package aggregate

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// IdentityResolver maps a business name to the key master records are
// deduplicated on.
type IdentityResolver interface {
	Name() string
	Key(businessName string) string
}

// ExactName matches business names byte for byte.
type ExactName struct{}

func (ExactName) Name() string           { return "exact" }
func (ExactName) Key(name string) string { return name }

// NormalizedName matches names after case folding, dropping punctuation and
// a trailing legal suffix, and collapsing whitespace.
type NormalizedName struct{}

func (NormalizedName) Name() string { return "normalized" }

var legalSuffixes = []string{
	" llc", " l.l.c.", " inc", " inc.", " incorporated",
	" corp", " corp.", " corporation", " ltd", " ltd.",
	" co", " co.", " pllc", " llp", " pc", " p.c.",
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

func (NormalizedName) Key(name string) string {
	name = strings.TrimSpace(cases.Fold().String(name))
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", "and",
		"-", " ",
	).Replace(name)
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(name, " "))
}

// ResolverByName returns the resolver configured as name.
func ResolverByName(name string) (IdentityResolver, error) {
	switch name {
	case "", "exact":
		return ExactName{}, nil
	case "normalized":
		return NormalizedName{}, nil
	default:
		return nil, eris.Errorf("aggregate: unknown identity resolver %q", name)
	}
}
