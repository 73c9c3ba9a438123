package registry

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

var timePattern = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// Registry holds the canonical set of ActionDescriptors and their handlers.
// It is populated once at startup and read-only afterwards; no locking.
type Registry struct {
	entries map[string]entry
	order   []string
}

type entry struct {
	desc    contractx.ActionDescriptor
	handler contractx.Handler
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]entry, 16),
	}
}

// Register adds an action. Duplicate names are a programming error, not a
// runtime condition, so the second registration is rejected outright.
func (r *Registry) Register(desc contractx.ActionDescriptor, h contractx.Handler) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("%w: action name is empty", contractx.ErrValidation)
	}
	if h == nil {
		return fmt.Errorf("%w: handler is nil for action=%s", contractx.ErrValidation, name)
	}
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %s", contractx.ErrDuplicateAction, name)
	}
	for _, arg := range desc.Args {
		if strings.TrimSpace(arg.Name) == "" {
			return fmt.Errorf("%w: action=%s has an unnamed argument", contractx.ErrValidation, name)
		}
		if len(arg.Enum) > 0 && arg.Type != contractx.ArgString {
			return fmt.Errorf("%w: action=%s arg=%s enum requires string type", contractx.ErrValidation, name, arg.Name)
		}
	}

	desc.Name = name
	if desc.Hint == "" {
		desc.Hint = contractx.HintText
	}
	r.entries[name] = entry{desc: desc, handler: h}
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the descriptor and handler bound to an action name.
func (r *Registry) Lookup(name string) (contractx.ActionDescriptor, contractx.Handler, bool) {
	e, ok := r.entries[strings.TrimSpace(name)]
	if !ok {
		return contractx.ActionDescriptor{}, nil, false
	}
	return e.desc, e.handler, true
}

// Descriptors returns all descriptors in registration order.
func (r *Registry) Descriptors() []contractx.ActionDescriptor {
	out := make([]contractx.ActionDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].desc)
	}
	return out
}

// Validate checks an invocation against its descriptor. All violations are
// collected, not just the first, so the clarifying reply can name every
// missing or malformed slot at once.
func (r *Registry) Validate(inv contractx.ActionInvocation) error {
	desc, _, ok := r.Lookup(inv.Action)
	if !ok {
		return fmt.Errorf("%w: %s", contractx.ErrUnknownAction, inv.Action)
	}

	verr := &ValidationError{Action: desc.Name}
	known := make(map[string]struct{}, len(desc.Args))
	for _, spec := range desc.Args {
		known[spec.Name] = struct{}{}
		val, present := inv.Args[spec.Name]
		if !present || isEmptyValue(val) {
			if spec.Required {
				verr.Missing = append(verr.Missing, spec.Name)
			}
			continue
		}
		if reason := checkValue(spec, val); reason != "" {
			verr.Invalid = append(verr.Invalid, FieldViolation{Name: spec.Name, Reason: reason})
		}
	}
	for name := range inv.Args {
		if _, ok := known[name]; !ok {
			verr.Invalid = append(verr.Invalid, FieldViolation{Name: name, Reason: "not a declared argument"})
		}
	}

	if len(verr.Missing) == 0 && len(verr.Invalid) == 0 {
		return nil
	}
	sort.Strings(verr.Missing)
	sort.Slice(verr.Invalid, func(i, j int) bool { return verr.Invalid[i].Name < verr.Invalid[j].Name })
	return verr
}

func isEmptyValue(val any) bool {
	s, ok := val.(string)
	return ok && strings.TrimSpace(s) == ""
}

func checkValue(spec contractx.ArgSpec, val any) string {
	switch spec.Type {
	case contractx.ArgString:
		s, ok := val.(string)
		if !ok {
			return fmt.Sprintf("expected string, got %T", val)
		}
		if len(spec.Enum) > 0 && !containsFold(spec.Enum, s) {
			return fmt.Sprintf("must be one of %s", strings.Join(spec.Enum, ", "))
		}
	case contractx.ArgInteger:
		switch v := val.(type) {
		case int, int32, int64:
		case float64:
			if v != math.Trunc(v) {
				return "expected integer"
			}
		default:
			return fmt.Sprintf("expected integer, got %T", val)
		}
	case contractx.ArgNumber:
		switch val.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Sprintf("expected number, got %T", val)
		}
	case contractx.ArgBoolean:
		if _, ok := val.(bool); !ok {
			return fmt.Sprintf("expected boolean, got %T", val)
		}
	case contractx.ArgDate:
		s, ok := val.(string)
		if !ok {
			return fmt.Sprintf("expected date string, got %T", val)
		}
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
			return "expected date in YYYY-MM-DD form"
		}
	case contractx.ArgTime:
		s, ok := val.(string)
		if !ok {
			return fmt.Sprintf("expected time string, got %T", val)
		}
		if !timePattern.MatchString(strings.TrimSpace(s)) {
			return "expected time in HH:MM form"
		}
	default:
		return fmt.Sprintf("unsupported argument type %q", spec.Type)
	}
	return ""
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
