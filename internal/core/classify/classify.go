// Package classify decides whether an extracted token is a plausible invite
// code or noise. Stateless; every decision is a pure function of the token
package classify

import "strings"

// Reason explains why a token was accepted or rejected
type Reason string

const (
	// ReasonWrongLength rejects tokens that are not exactly six characters
	ReasonWrongLength Reason = "wrong_length"
	// ReasonNotMixed rejects tokens lacking either a letter or a digit
	ReasonNotMixed Reason = "not_mixed"
	// ReasonBlacklist rejects known English words, platform terms, and fixtures
	ReasonBlacklist Reason = "blacklist"
	// ReasonHomogeneous rejects all-letter or all-digit tokens; a safety net
	// behind the mixed check for normalization edge cases
	ReasonHomogeneous Reason = "homogeneous"
	// ReasonValid marks an accepted token
	ReasonValid Reason = "valid"
)

// Result is the classifier verdict for one token
type Result struct {
	Valid  bool
	Reason Reason
}

// codeLength must agree with the extractor's fixed token length
const codeLength = 6

// blacklist holds uppercased words and fixtures that look like codes but
// never are: conversational words seen in invite threads, platform terms,
// and common test placeholders
var blacklist = map[string]struct{}{
	"ANYONE": {}, "PLEASE": {}, "THANKS": {}, "UPDATE": {}, "POSTED": {}, "DELETE": {},
	"THREAD": {}, "INVITE": {}, "WITHIN": {}, "SECOND": {}, "TRIPLE": {}, "PROMPT": {},
	"OPENAI": {}, "REDDIT": {}, "REPORT": {}, "START": {}, "GIVING": {}, "TAKING": {},
	"FRIEND": {}, "PEOPLE": {}, "PERSON": {}, "SINGLE": {}, "DOUBLE": {}, "FOLLOW": {},
	"RECENT": {}, "RANDOM": {}, "PUBLIC": {}, "BUTTON": {}, "SUBMIT": {}, "CANCEL": {},
	"TEST01": {}, "TEST02": {}, "DEMO01": {}, "SAMPLE": {}, "XXXXXX": {}, "ABCDEF": {},
	"123456": {}, "ABC123": {}, "XYZ789": {}, "START1": {}, "ERROR1": {},
}

// Classify normalizes token to uppercase and applies the rule chain in strict
// order: wrong_length, not_mixed, blacklist, homogeneous, valid. First failing
// rule wins. Total over any string input
func Classify(token string) Result {
	up := strings.ToUpper(token)

	if len(up) != codeLength {
		return Result{Reason: ReasonWrongLength}
	}

	var hasLetter, hasDigit bool
	for i := 0; i < len(up); i++ {
		switch c := up[i]; {
		case c >= 'A' && c <= 'Z':
			hasLetter = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return Result{Reason: ReasonNotMixed}
	}

	if _, banned := blacklist[up]; banned {
		return Result{Reason: ReasonBlacklist}
	}

	// redundant with the mixed check for ASCII input; kept as a safety net
	// against normalization edge cases
	if allLetters(up) || allDigits(up) {
		return Result{Reason: ReasonHomogeneous}
	}

	return Result{Valid: true, Reason: ReasonValid}
}

// Normalize returns the canonical uppercased form used for dedup comparisons
func Normalize(token string) string { return strings.ToUpper(token) }

func allLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
