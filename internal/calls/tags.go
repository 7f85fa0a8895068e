package calls

import (
	"strconv"

	"callbridge/internal/crm"
)

// maxTrackedAttempts is the number of FAILED_TO_CALL_<n> tags kept before
// failures collapse into NOT_ANSWERED.
const maxTrackedAttempts = 4

// PotentialFailureTag returns the tag to write if this attempt fails, together with
// the attempt number it represents.
//
// The attempt number is the smallest n >= 1 whose FAILED_TO_CALL_<n> tag is absent.
// Once n passes maxTrackedAttempts the tag is NOT_ANSWERED.
func PotentialFailureTag(tags []string) (string, int) {
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		seen[t] = struct{}{}
	}

	n := 1
	for {
		if _, ok := seen[failedToCallTag(n)]; !ok {
			break
		}
		n++
	}
	if n > maxTrackedAttempts {
		return crm.TagNotAnswered, n
	}
	return failedToCallTag(n), n
}

func failedToCallTag(n int) string {
	return crm.TagFailedToCallPrefix + strconv.Itoa(n)
}

func failureOutcome(tag string) Outcome {
	if tag == crm.TagNotAnswered {
		return OutcomeNotAnswered
	}
	return OutcomeFailedAttempt
}
