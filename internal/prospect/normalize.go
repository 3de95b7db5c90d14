package prospect

import (
	"strings"

	"github.com/badoux/checkmail"
)

// NormalizeEmail lowercases a well-formed address and returns "" for
// anything else.
func NormalizeEmail(email string) string {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return ""
	}
	if err := checkmail.ValidateFormat(e); err != nil {
		return ""
	}
	at := strings.LastIndexByte(e, '@')
	if !strings.Contains(e[at+1:], ".") {
		return ""
	}
	return e
}

// NormalizePhone keeps digits and plus signs.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeWebsite lowercases the URL and adds https:// when it has no scheme.
func NormalizeWebsite(website string) string {
	u := strings.ToLower(strings.TrimSpace(website))
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}
