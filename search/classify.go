package search

import (
	"bytes"
	"net/http"
)

// Outcome is the classification of a raw engine response.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeBlocked
	OutcomeEmpty
	OutcomeUnexpectedStatus
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeEmpty:
		return "empty"
	case OutcomeUnexpectedStatus:
		return "unexpected_status"
	}
	return "unknown"
}

// commonBlockSignatures appear on the interstitials most engines serve to
// automated traffic.
var commonBlockSignatures = []string{
	"unusual traffic from your computer network",
	"our systems have detected unusual traffic",
	"g-recaptcha",
	"h-captcha",
	"captcha-delivery.com",
	"please verify you are a human",
	"/sorry/index",
}

var blockStatuses = map[int]bool{
	http.StatusForbidden:          true,
	http.StatusTooManyRequests:    true,
	http.StatusServiceUnavailable: true,
}

// Classify decides whether a response holds a results page. located is
// the number of result blocks found in the body. Block signatures are
// matched case-insensitively, and only against pages without results:
// snippets of a results page may quote a captcha.
func Classify(status int, body []byte, located int, signatures []string) Outcome {
	if blockStatuses[status] {
		return OutcomeBlocked
	}
	if status < 200 || status >= 300 {
		return OutcomeUnexpectedStatus
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return OutcomeEmpty
	}
	if located > 0 {
		return OutcomeOK
	}
	lower := bytes.ToLower(body)
	for _, sig := range commonBlockSignatures {
		if bytes.Contains(lower, []byte(sig)) {
			return OutcomeBlocked
		}
	}
	for _, sig := range signatures {
		if sig != "" && bytes.Contains(lower, bytes.ToLower([]byte(sig))) {
			return OutcomeBlocked
		}
	}
	return OutcomeOK
}

func (o Outcome) reason() BlockReason {
	switch o {
	case OutcomeBlocked:
		return ReasonBlocked
	case OutcomeEmpty:
		return ReasonEmptyResponse
	}
	return ReasonUnexpectedStatus
}
