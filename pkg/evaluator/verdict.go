package evaluator

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/papercomputeco/judgebench/pkg/utils"
)

const (
	reasonPrefix    = "Reason:"
	inabilityPrefix = "inability:"

	// MissingReason is the reasoning recorded when the judge gave a score only.
	MissingReason = "Score found, but reason missing in evaluator response."

	errInability      = "evaluator identified inability: "
	errZeroScore      = "evaluator assigned 0.0 score"
	errZeroNoReason   = "evaluator assigned 0.0 score (reason missing)"
	errUnexpectedForm = "evaluation parsing failed: unexpected format"
)

var errNaN = errors.New("score is not a number")

// Verdict is the parsed judge answer.
type Verdict struct {
	// Score is in [0,1], or nil when no score could be parsed.
	Score *float64

	// Reasoning is the judge's reason, the missing-reason placeholder, or
	// the raw answer when parsing failed.
	Reasoning string

	// Error flags zero scores and parse failures. Empty otherwise.
	Error string
}

// ParseVerdict parses a judge answer of the form "<score>\nReason: <text>".
// Out-of-range scores are clamped to [0,1].
func ParseVerdict(raw string) Verdict {
	raw = strings.TrimSpace(raw)
	head, tail, hasTail := strings.Cut(raw, "\n")

	score, err := parseScore(head)
	if err != nil {
		// The whole answer may still be a bare score.
		score, err = parseScore(raw)
		if err != nil {
			return Verdict{
				Reasoning: "Evaluation parsing failed: Unexpected format '" + raw + "'",
				Error:     errUnexpectedForm,
			}
		}
		hasTail = false
	}

	v := Verdict{Score: utils.Ptr(score)}

	if !hasTail {
		v.Reasoning = MissingReason
		if score == 0 {
			v.Error = errZeroNoReason
		}
		return v
	}

	reason := strings.TrimSpace(tail)
	if strings.HasPrefix(reason, reasonPrefix) {
		reason = strings.TrimSpace(strings.TrimPrefix(reason, reasonPrefix))
	}
	v.Reasoning = reason

	if score == 0 {
		if strings.HasPrefix(strings.ToLower(reason), inabilityPrefix) {
			v.Error = errInability + reason
		} else {
			v.Error = errZeroScore
		}
	}

	return v
}

func parseScore(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, errNaN
	}
	return clamp(f), nil
}

func clamp(f float64) float64 {
	switch {
	case f <= 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
