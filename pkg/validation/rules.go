package validation

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const (
	RuleRequired  = "required"
	RuleAccepted  = "accepted"
	RuleEmail     = "email"
	RulePhone     = "phone"
	RuleURL       = "url"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleOneOf     = "oneOf"
	RuleNumeric   = "numeric"
	RuleMin       = "min"
	RuleMax       = "max"
	RuleExpr      = "expr"
)

// MessageInvalidFormat is reported by the format-style rules.
const MessageInvalidFormat = "invalid format"

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,18}[0-9]$`)
)

// Rule is a single declarative constraint. Thresholds live in
// Params["value"], regular expressions in Params["pattern"] and expressions
// in Params["expr"]. oneOf reads Choices, or comma separated Params["values"]
// as a shorthand when Choices is empty. Message overrides the default text.
type Rule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Choices []string          `json:"choices,omitempty" yaml:"choices,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// AllowedValues returns the oneOf choices. Values from Choices are kept
// verbatim, so they may contain commas.
func (r Rule) AllowedValues() []string {
	var out []string
	if len(r.Choices) > 0 {
		for _, choice := range r.Choices {
			if strings.TrimSpace(choice) != "" {
				out = append(out, choice)
			}
		}
		return out
	}
	for _, choice := range strings.Split(r.Params["values"], ",") {
		if trimmed := strings.TrimSpace(choice); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// String renders the rule compactly, e.g. "minLength(value=2)".
func (r Rule) String() string {
	if len(r.Params) == 0 && len(r.Choices) == 0 {
		return r.Kind
	}
	keys := make([]string, 0, len(r.Params))
	for key := range r.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	if len(r.Choices) > 0 {
		parts = append(parts, "choices=["+strings.Join(r.Choices, " | ")+"]")
	}
	for _, key := range keys {
		parts = append(parts, key+"="+r.Params[key])
	}
	return r.Kind + "(" + strings.Join(parts, ", ") + ")"
}

// FieldRules binds an ordered rule list to one field.
type FieldRules struct {
	Field string
	Rules []Rule
}

// ForField builds FieldRules, prepending a required rule when required is set.
func ForField(name string, required bool, rules ...Rule) FieldRules {
	out := FieldRules{Field: name}
	if required && !hasKind(rules, RuleRequired) {
		out.Rules = append(out.Rules, Rule{Kind: RuleRequired})
	}
	out.Rules = append(out.Rules, rules...)
	return out
}

// RuleSet is a compiled, field-scoped Schema.
type RuleSet struct {
	fields []string
	rules  map[string][]compiledRule
}

var _ wizard.Schema = (*RuleSet)(nil)
var _ wizard.FieldScoped = (*RuleSet)(nil)

type compiledRule struct {
	rule    Rule
	pattern *regexp.Regexp
	program *vm.Program
	number  float64
	length  int
	choices []string
}

// Rules compiles field rules into a Schema. Unknown kinds, bad patterns,
// bad thresholds and expressions that fail to compile are reported here
// rather than during validation.
func Rules(fields ...FieldRules) (*RuleSet, error) {
	set := &RuleSet{rules: make(map[string][]compiledRule, len(fields))}
	for _, fr := range fields {
		name := strings.TrimSpace(fr.Field)
		if name == "" {
			return nil, fmt.Errorf("validation: rule set field name is required")
		}
		if _, dup := set.rules[name]; dup {
			return nil, fmt.Errorf("validation: field %q declared twice", name)
		}
		compiled := make([]compiledRule, 0, len(fr.Rules))
		for _, rule := range fr.Rules {
			c, err := compileRule(rule)
			if err != nil {
				return nil, fmt.Errorf("validation: field %q: %w", name, err)
			}
			compiled = append(compiled, c)
		}
		set.fields = append(set.fields, name)
		set.rules[name] = compiled
	}
	return set, nil
}

// MustRules panics when Rules fails.
func MustRules(fields ...FieldRules) *RuleSet {
	set, err := Rules(fields...)
	if err != nil {
		panic(err)
	}
	return set
}

// Fields lists the fields the set inspects.
func (s *RuleSet) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Validate applies each field's rules in order and keeps the first failure.
// Empty optional fields skip their remaining rules.
func (s *RuleSet) Validate(_ context.Context, values wizard.Values) wizard.FieldErrors {
	errs := make(wizard.FieldErrors)
	for _, field := range s.fields {
		value := values.String(field)
		for _, rule := range s.rules[field] {
			if rule.rule.Kind != RuleRequired && rule.rule.Kind != RuleAccepted && strings.TrimSpace(value) == "" {
				break
			}
			if msg, ok := rule.check(value, values); !ok {
				errs[field] = msg
				break
			}
		}
	}
	return errs
}

func compileRule(rule Rule) (compiledRule, error) {
	c := compiledRule{rule: rule}
	param := func(key string) string { return strings.TrimSpace(rule.Params[key]) }

	switch rule.Kind {
	case RuleRequired, RuleAccepted, RuleEmail, RulePhone, RuleURL, RuleNumeric:
	case RuleMinLength, RuleMaxLength:
		n, err := strconv.Atoi(param("value"))
		if err != nil || n < 0 {
			return c, fmt.Errorf("rule %s: invalid length %q", rule.Kind, param("value"))
		}
		c.length = n
	case RuleMin, RuleMax:
		n, err := strconv.ParseFloat(param("value"), 64)
		if err != nil {
			return c, fmt.Errorf("rule %s: invalid bound %q", rule.Kind, param("value"))
		}
		c.number = n
	case RulePattern:
		re, err := regexp.Compile(param("pattern"))
		if err != nil {
			return c, fmt.Errorf("rule pattern: %w", err)
		}
		c.pattern = re
	case RuleOneOf:
		c.choices = rule.AllowedValues()
		if len(c.choices) == 0 {
			return c, fmt.Errorf("rule oneOf: no values")
		}
	case RuleExpr:
		source := param("expr")
		if source == "" {
			return c, fmt.Errorf("rule expr: expression is required")
		}
		program, err := expr.Compile(source, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return c, fmt.Errorf("rule expr: compile %q: %w", source, err)
		}
		c.program = program
	default:
		return c, fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
	return c, nil
}

func (c compiledRule) check(value string, all wizard.Values) (string, bool) {
	trimmed := strings.TrimSpace(value)
	switch c.rule.Kind {
	case RuleRequired:
		return c.message("required"), trimmed != ""
	case RuleAccepted:
		switch strings.ToLower(trimmed) {
		case "true", "on", "yes", "1":
			return "", true
		}
		return c.message("must be accepted"), false
	case RuleEmail:
		return c.message(MessageInvalidFormat), emailPattern.MatchString(trimmed)
	case RulePhone:
		return c.message(MessageInvalidFormat), phonePattern.MatchString(trimmed)
	case RuleURL:
		u, err := url.ParseRequestURI(trimmed)
		ok := err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
		return c.message(MessageInvalidFormat), ok
	case RulePattern:
		return c.message(MessageInvalidFormat), c.pattern.MatchString(value)
	case RuleMinLength:
		return c.message(fmt.Sprintf("must be at least %d characters", c.length)), len([]rune(trimmed)) >= c.length
	case RuleMaxLength:
		return c.message(fmt.Sprintf("must be at most %d characters", c.length)), len([]rune(trimmed)) <= c.length
	case RuleOneOf:
		for _, choice := range c.choices {
			if trimmed == choice {
				return "", true
			}
		}
		return c.message("must be one of: " + strings.Join(c.choices, ", ")), false
	case RuleNumeric:
		_, err := strconv.ParseFloat(trimmed, 64)
		return c.message("must be a number"), err == nil
	case RuleMin, RuleMax:
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return c.message("must be a number"), false
		}
		if c.rule.Kind == RuleMin {
			return c.message(fmt.Sprintf("must be at least %s", formatNumber(c.number))), n >= c.number
		}
		return c.message(fmt.Sprintf("must be at most %s", formatNumber(c.number))), n <= c.number
	case RuleExpr:
		env := make(map[string]any, len(all))
		for k, v := range all {
			env[k] = v
		}
		out, err := vm.Run(c.program, env)
		if err != nil {
			return c.message("invalid value"), false
		}
		ok, _ := out.(bool)
		return c.message("invalid value"), ok
	}
	return c.message("invalid value"), false
}

func (c compiledRule) message(fallback string) string {
	if msg := strings.TrimSpace(c.rule.Message); msg != "" {
		return msg
	}
	return fallback
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func hasKind(rules []Rule, kind string) bool {
	for _, r := range rules {
		if r.Kind == kind {
			return true
		}
	}
	return false
}
