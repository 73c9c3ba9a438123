package registry

import (
	"fmt"
	"strings"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

// FieldViolation is one malformed argument with the reason it was rejected.
type FieldViolation struct {
	Name   string
	Reason string
}

// ValidationError enumerates every violation found in one invocation.
type ValidationError struct {
	Action  string
	Missing []string
	Invalid []FieldViolation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invocation of %s invalid", e.Action)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Missing, ", "))
	}
	for _, v := range e.Invalid {
		fmt.Fprintf(&b, "; %s: %s", v.Name, v.Reason)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return contractx.ErrValidation
}

// InvalidNames returns the malformed argument names in order.
func (e *ValidationError) InvalidNames() []string {
	if len(e.Invalid) == 0 {
		return nil
	}
	names := make([]string, 0, len(e.Invalid))
	for _, v := range e.Invalid {
		names = append(names, v.Name)
	}
	return names
}
