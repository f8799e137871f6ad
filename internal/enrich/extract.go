package enrich

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sells-group/lead-harvest/internal/model"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Asset names like logo@2x.png match the email pattern.
var imageSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

const placeholderDomain = "example.com"

// CleanURL unwraps a Google redirect link (".../url?q=<target>&...") to its
// target. Anything else is returned unchanged.
func CleanURL(raw string) string {
	if !strings.Contains(raw, "/url?q=") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	return raw
}

// ExtractContacts pulls the first plausible email from the page content and
// the first link to each social platform.
func ExtractContacts(p *Page) model.Contacts {
	var c model.Contacts
	if p == nil {
		return c
	}
	c.Email = firstEmail(p.Content)
	for _, link := range p.Links {
		if c.Facebook == "" && strings.Contains(link, "facebook.com") {
			c.Facebook = link
		}
		if c.Instagram == "" && strings.Contains(link, "instagram.com") {
			c.Instagram = link
		}
		if c.LinkedIn == "" && strings.Contains(link, "linkedin.com") {
			c.LinkedIn = link
		}
	}
	return c
}

func firstEmail(content string) string {
	for _, m := range emailPattern.FindAllString(content, -1) {
		lower := strings.ToLower(m)
		if strings.Contains(lower, placeholderDomain) || hasImageSuffix(lower) {
			continue
		}
		return m
	}
	return ""
}

func hasImageSuffix(s string) bool {
	for _, suf := range imageSuffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
