package credential

import "strings"

// Credential is an opaque API key granting quota-limited access to the
// inference service. Compare by value; log only Masked().
type Credential string

// Masked returns a log-safe form keeping the last four characters.
func (c Credential) Masked() string {
	s := string(c)
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	if len(s) <= 8 {
		return "****" + s[len(s)-2:]
	}
	return s[:2] + "****" + s[len(s)-4:]
}

// String never exposes the full secret, so credentials are safe in %v.
func (c Credential) String() string { return c.Masked() }

// Empty reports whether the credential is blank.
func (c Credential) Empty() bool { return strings.TrimSpace(string(c)) == "" }

// Normalize trims whitespace, drops blanks and removes duplicates while
// keeping first-seen order.
func Normalize(creds []Credential) []Credential {
	out := make([]Credential, 0, len(creds))
	seen := make(map[Credential]struct{}, len(creds))
	for _, c := range creds {
		c = Credential(strings.TrimSpace(string(c)))
		if c.Empty() {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
