package provider

import (
	"fmt"
	"strings"
)

// Marker maps an error substring to a shrink strategy.
type Marker struct {
	Substring string
	Action    Action
	Ratio     float64
}

// Rules is a provider's failure-marker table.
type Rules struct {
	// RefusalPrefixes mark a reply as a policy refusal.
	RefusalPrefixes []string
	RefusalRatio    float64
	// MinLength marks replies shorter than this many characters as failures (0 disables).
	MinLength      int
	MinLengthRatio float64
	// Shrink markers are matched case-insensitively against the error text.
	Shrink []Marker
	// Fatal markers are matched case-insensitively against the error text.
	Fatal []string
}

// Judge turns the outcome of one Send into a Verdict.
func (r Rules) Judge(text string, err error) Verdict {
	if err != nil {
		msg := strings.ToLower(err.Error())
		for _, f := range r.Fatal {
			if strings.Contains(msg, strings.ToLower(f)) {
				return Verdict{Action: Fatal, Reason: f}
			}
		}
		for _, m := range r.Shrink {
			if strings.Contains(msg, strings.ToLower(m.Substring)) {
				return Verdict{Action: m.Action, Ratio: m.Ratio, Reason: m.Substring}
			}
		}
		return Verdict{Action: Retry, Reason: "error"}
	}

	for _, p := range r.RefusalPrefixes {
		if strings.HasPrefix(text, p) {
			return Verdict{Action: ShrinkPolicy, Ratio: r.RefusalRatio, Reason: "refusal"}
		}
	}
	if r.MinLength > 0 && len([]rune(text)) < r.MinLength {
		return Verdict{Action: ShrinkPolicy, Ratio: r.MinLengthRatio, Reason: fmt.Sprintf("shorter than %d characters", r.MinLength)}
	}
	if text == "" {
		return Verdict{Action: Retry, Reason: "empty reply"}
	}
	return Verdict{Action: Accept}
}

// RefusalPrefix is the apology most vision models open a refusal with.
const RefusalPrefix = "I'm sorry, but"

// RefusalPrefixes covers both apostrophe forms; every provider table uses it.
var RefusalPrefixes = []string{RefusalPrefix, "I’m sorry, but"}
