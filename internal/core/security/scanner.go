package security

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// PlaceholderPrefix starts every mask placeholder
const PlaceholderPrefix = "__GQLR_SEC_"

var placeholderPattern = regexp.MustCompile(`__GQLR_SEC_[0-9a-f]{12}__`)

// Vault stores placeholder -> secret mappings. *core.Request implements it.
type Vault interface {
	VaultStore(placeholder, original string)
	VaultGet(placeholder string) (string, bool)
}

// Rule is a sensitive-data detection rule
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Scanner finds and replaces sensitive data in text
type Scanner struct {
	rules []Rule
}

// NewScanner creates a Scanner with the built-in rules, most specific first
func NewScanner() *Scanner {
	return &Scanner{
		rules: []Rule{
			{
				Name:        "Private Key",
				Pattern:     regexp.MustCompile(`-----BEGIN [A-Z ]+ PRIVATE KEY-----`),
				Replacement: "[PRIVATE_KEY_REDACTED]",
			},
			{
				Name:        "AWS Access Key",
				Pattern:     regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
				Replacement: "[AWS_AK_REDACTED]",
			},
			{
				Name:        "OpenAI API Key",
				Pattern:     regexp.MustCompile(`\bsk-(?:proj-)?[a-zA-Z0-9]{20,}\b`),
				Replacement: "[OPENAI_KEY_REDACTED]",
			},
			{
				Name:        "GitHub Token",
				Pattern:     regexp.MustCompile(`\b(ghp|gho|ghu|ghs|ghr)_[a-zA-Z0-9]{36}\b`),
				Replacement: "[GITHUB_TOKEN_REDACTED]",
			},
			{
				Name:        "Google API Key",
				Pattern:     regexp.MustCompile(`\bAIza[0-9A-Za-z-_]{35}\b`),
				Replacement: "[GOOGLE_KEY_REDACTED]",
			},
			{
				Name:        "Email",
				Pattern:     regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
				Replacement: "[EMAIL_REDACTED]",
			},
			{
				// word boundaries keep digits inside keys from matching
				Name:        "Mobile Phone",
				Pattern:     regexp.MustCompile(`\b(?:\+?86)?\s*(?:1[3-9]\d{9})\b`),
				Replacement: "[PHONE_REDACTED]",
			},
		},
	}
}

// Sanitize replaces every match with its rule's fixed replacement
func (s *Scanner) Sanitize(input string) string {
	result := input
	for _, rule := range s.rules {
		result = rule.Pattern.ReplaceAllString(result, rule.Replacement)
	}
	return result
}

// Mask replaces matches with reversible placeholders and records them in vault.
// tags limits masking to the named rules; nil means all rules.
func (s *Scanner) Mask(vault Vault, input string, tags []string) string {
	result := input
	for _, rule := range s.rules {
		if !ruleSelected(rule.Name, tags) {
			continue
		}
		result = rule.Pattern.ReplaceAllStringFunc(result, func(secret string) string {
			placeholder := Placeholder(secret)
			if vault != nil {
				vault.VaultStore(placeholder, secret)
			}
			return placeholder
		})
	}
	return result
}

// Unmask restores placeholders found in vault; unknown placeholders are left alone
func (s *Scanner) Unmask(vault Vault, input string) string {
	if vault == nil {
		return input
	}
	return placeholderPattern.ReplaceAllStringFunc(input, func(placeholder string) string {
		if original, ok := vault.VaultGet(placeholder); ok {
			return original
		}
		return placeholder
	})
}

// Placeholder derives the deterministic placeholder for a secret
func Placeholder(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return PlaceholderPrefix + hex.EncodeToString(sum[:])[:12] + "__"
}

// AddRule adds a custom rule after the built-in ones
func (s *Scanner) AddRule(name string, pattern string, replacement string) error {
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, Rule{
		Name:        name,
		Pattern:     compiled,
		Replacement: replacement,
	})
	return nil
}

// GetRules returns a copy of the current rules
func (s *Scanner) GetRules() []Rule {
	rulesCopy := make([]Rule, len(s.rules))
	copy(rulesCopy, s.rules)
	return rulesCopy
}

func ruleSelected(name string, tags []string) bool {
	if tags == nil {
		return true
	}
	for _, tag := range tags {
		if tag == name {
			return true
		}
	}
	return false
}
