package validation

import "strings"

// ConsentField is the canonical field a missing consent is reported on.
const ConsentField = "rgpd_consent"

const consentMessage = "GDPR consent is mandatory and must be explicitly accepted"

// ConsentKeys are the payload keys accepted as the consent checkbox.
var ConsentKeys = []string{
	"rgpd_consent",
	"consent_rgpd",
	"consentement_rgpd",
	"gdpr_consent",
	"privacy_consent",
	"consentement",
}

var affirmativeTokens = map[string]bool{
	"true": true,
	"1":    true,
	"yes":  true,
	"oui":  true,
}

// HasConsent reports whether any consent key carries an affirmative value.
func HasConsent(form map[string]any) bool {
	for _, key := range ConsentKeys {
		if v, ok := form[key]; ok && IsAffirmative(v) {
			return true
		}
	}
	return false
}

// IsAffirmative accepts boolean true and, case-insensitively, the strings
// true, 1, yes and oui.
func IsAffirmative(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if v == nil {
		return false
	}
	return affirmativeTokens[strings.ToLower(strings.TrimSpace(Stringify(v)))]
}
