package validation

import "regexp"

// Rule is one entry of the rule table. Zero values mean "not declared":
// a nil Pattern, a zero MinLength or MaxLength and a nil Expected add no
// constraint.
type Rule struct {
	Key       string
	Required  bool
	Pattern   *regexp.Regexp
	MinLength int
	MaxLength int
	Expected  any
	// Message is reported for pattern and expected-value failures.
	Message string
}

// DefaultRules is the static table applied to every form payload.
var DefaultRules = []Rule{
	{
		Key:      "email",
		Required: true,
		Pattern:  fullMatch(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		Message:  "invalid email format",
	},
	{
		Key:     "phone",
		Pattern: fullMatch(`(?:\+33|0)[1-9][0-9]{8}`),
		Message: "invalid phone number (French format expected)",
	},
	{
		Key:      ConsentField,
		Required: true,
		Expected: true,
		Message:  "GDPR consent is mandatory",
	},
	{
		Key:       "prenom",
		Required:  true,
		MinLength: 2,
		MaxLength: 50,
		Message:   "first name must be between 2 and 50 characters",
	},
	{
		Key:       "nom",
		Required:  true,
		MinLength: 2,
		MaxLength: 50,
		Message:   "last name must be between 2 and 50 characters",
	},
}

// fullMatch compiles expr so that it must match the whole value.
func fullMatch(expr string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + expr + `)$`)
}
