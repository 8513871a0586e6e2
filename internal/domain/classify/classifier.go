package classify

import (
	"context"
	"strings"

	"hotdog-server-go/internal/domain/image"
)

// DefaultDescription fills in when the model returns a verdict without a
// second line.
const DefaultDescription = "no description provided"

// Result is the immutable outcome of one classification.
type Result struct {
	IsHotdog    bool
	Description string
}

// Classifier is the capability the transport layer depends on. Tests
// substitute a deterministic stub instead of issuing real network calls.
type Classifier interface {
	// Classify sends the validated image to the remote model and returns
	// the parsed verdict.
	Classify(ctx context.Context, img *image.Validated) (Result, error)
	// TestConnection reports whether the remote API is reachable with the
	// configured credentials. Used by the health surface only.
	TestConnection(ctx context.Context) bool
}

// ParseAnswer interprets the model's reply. The first line carries the
// verdict, anything after the first newline is the description.
//
// The verdict is a strict case-insensitive equality check against "hotdog"
// after trimming whitespace and trailing punctuation. Substring matching
// ("hotdog" in answer without "not") misclassifies answers like "this is not
// a hotdog" and is deliberately not used.
func ParseAnswer(answer string) Result {
	answer = strings.TrimSpace(answer)

	verdict := answer
	description := ""
	if idx := strings.Index(answer, "\n"); idx >= 0 {
		verdict = answer[:idx]
		description = strings.TrimSpace(answer[idx+1:])
	}

	verdict = strings.Trim(strings.TrimSpace(verdict), ".!?")

	if description == "" {
		description = DefaultDescription
	}

	return Result{
		IsHotdog:    strings.EqualFold(verdict, "hotdog"),
		Description: description,
	}
}
