// Package phone canonicalizes contact identities coming from providers and
// from the CRM API. Numbers are stored digits-only with the Brazilian country
// code stripped; legacy rows may still carry it, so lookups go through the
// candidate set instead of a single key.
package phone

import "strings"

const countryCode = "55"

// Normalize returns the canonical digit string for a raw phone in any
// human/provider format. The country code is stripped only when the number is
// long enough to unambiguously contain one, which makes the transform
// idempotent.
func Normalize(raw string) string {
	d := Digits(raw)
	if len(d) >= 12 && strings.HasPrefix(d, countryCode) {
		return d[len(countryCode):]
	}
	return d
}

// Digits strips everything but 0-9, including a WhatsApp "@c.us" style suffix.
func Digits(raw string) string {
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		raw = raw[:at]
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Candidates returns the set of digit strings a stored lead may be keyed by:
// the full digits, the canonical form and the last-11/last-10 suffixes that
// cover legacy 8-digit records and rows stored with the country code.
func Candidates(raw string) []string {
	d := Digits(raw)
	if d == "" {
		return nil
	}

	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(d)
	add(Normalize(raw))
	if len(d) > 11 {
		add(d[len(d)-11:])
	}
	if len(d) > 10 {
		add(d[len(d)-10:])
	}
	return out
}

// AreaCode returns the two-digit area code of a canonical number, or "" when
// the number is too short to carry one.
func AreaCode(raw string) string {
	n := Normalize(raw)
	if len(n) < 10 {
		return ""
	}
	return n[:2]
}

// LooksLikePhone reports whether s is plausibly a raw phone number rather
// than a database id or an opaque reference (10-13 digits).
func LooksLikePhone(s string) bool {
	d := Digits(s)
	return d == s && len(d) >= 10 && len(d) <= 13
}

// IsLID reports whether ref is a provider-opaque contact reference rather
// than a phone-keyed contact.
func IsLID(ref string) bool {
	return strings.HasSuffix(ref, "@lid")
}

// LIDValue returns the opaque identifier portion of a LID reference.
func LIDValue(ref string) string {
	return strings.TrimSuffix(ref, "@lid")
}

// IsGroup reports whether ref addresses a group chat.
func IsGroup(ref string) bool {
	return strings.HasSuffix(ref, "@g.us")
}

// IsBroadcast reports whether ref addresses a broadcast list (including
// status broadcasts).
func IsBroadcast(ref string) bool {
	return strings.HasSuffix(ref, "@broadcast")
}
