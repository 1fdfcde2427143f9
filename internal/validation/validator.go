// Package validation checks what a candidate submits: the schema-less form
// payload against a rule table matched by field name, and the uploaded file
// against size and type limits.
package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dharsanguruparan/cvdrop/internal/model"
)

// Validator applies a rule table to form payloads whose key set is unknown
// in advance.
type Validator struct {
	rules []Rule
}

// NewValidator returns a Validator over rules. A nil table means DefaultRules.
func NewValidator(rules []Rule) *Validator {
	if rules == nil {
		rules = DefaultRules
	}
	return &Validator{rules: rules}
}

// Validate checks form against the default rule table.
func Validate(form map[string]any) []model.Violation {
	return NewValidator(nil).Validate(form)
}

// Validate returns every violation found in form, consent first, then per
// field in key order. An empty result means the payload is accepted.
func (v *Validator) Validate(form map[string]any) []model.Violation {
	var out []model.Violation
	if !HasConsent(form) {
		out = append(out, model.Violation{Field: ConsentField, Message: consentMessage})
	}
	for _, key := range sortedKeys(form) {
		for _, rule := range v.RulesFor(key) {
			out = append(out, rule.check(key, form[key])...)
		}
	}
	return collapse(out)
}

// RulesFor returns the rules applying to a field: the exact match first, then
// every other rule whose key contains, or is contained in, the field name
// (case-insensitive). All of them apply.
func (v *Validator) RulesFor(field string) []Rule {
	var exact, partial []Rule
	lower := strings.ToLower(field)
	for _, rule := range v.rules {
		if rule.Key == field {
			exact = append(exact, rule)
			continue
		}
		key := strings.ToLower(rule.Key)
		if strings.Contains(lower, key) || strings.Contains(key, lower) {
			partial = append(partial, rule)
		}
	}
	return append(exact, partial...)
}

func (r Rule) check(field string, value any) []model.Violation {
	text := Stringify(value)
	if value == nil || strings.TrimSpace(text) == "" {
		if r.Required {
			return []model.Violation{{Field: field, Message: fmt.Sprintf("field %s is required", field)}}
		}
		return nil
	}
	var out []model.Violation
	fail := func(msg string) {
		out = append(out, model.Violation{Field: field, Message: msg})
	}
	if r.Pattern != nil && !r.Pattern.MatchString(text) {
		fail(r.messageOr("invalid format"))
	}
	length := utf8.RuneCountInString(text)
	if r.MinLength > 0 && length < r.MinLength {
		fail(fmt.Sprintf("minimum %d characters required", r.MinLength))
	}
	if r.MaxLength > 0 && length > r.MaxLength {
		fail(fmt.Sprintf("maximum %d characters allowed", r.MaxLength))
	}
	if r.Expected != nil && !matchesExpected(r.Expected, value) {
		fail(r.messageOr("invalid value"))
	}
	return out
}

func (r Rule) messageOr(def string) string {
	if r.Message != "" {
		return r.Message
	}
	return def
}

// matchesExpected compares a payload value with a rule's expected value. A
// boolean expectation also accepts the consent tokens, so a form posting
// "oui" for a checkbox passes the same way true does.
func matchesExpected(expected, value any) bool {
	if want, ok := expected.(bool); ok {
		if got, ok := value.(bool); ok {
			return got == want
		}
		return want && IsAffirmative(value)
	}
	return Stringify(expected) == Stringify(value)
}

// Stringify renders a decoded JSON value the way it is measured and matched:
// strings as is, numbers and booleans as their JSON literal, composite
// values as compact JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// collapse drops repeated (field, message) pairs, keeping the first one.
// Overlapping rules matched by substring can report the same constraint
// twice on one field ("prenom" also matches the "nom" rule). Keeping those
// duplicates would break the one-violation result for a short "prenom", so
// removing this step is not a cleanup. Distinct messages are all kept and
// every matching rule is still applied.
func collapse(in []model.Violation) []model.Violation {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[model.Violation]bool, len(in))
	out := make([]model.Violation, 0, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func sortedKeys(form map[string]any) []string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
