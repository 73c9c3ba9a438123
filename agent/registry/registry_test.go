package registry

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

func noopHandler(ctx context.Context, args map[string]any, caller contractx.IdentityBinding) (contractx.ActionResult, error) {
	return contractx.ActionResult{Success: true}, nil
}

func bookRoomDescriptor() contractx.ActionDescriptor {
	return contractx.ActionDescriptor{
		Name: "room.book",
		Desc: "Book a meeting room.",
		Args: []contractx.ArgSpec{
			{Name: "roomId", Type: contractx.ArgString, Required: true},
			{Name: "date", Type: contractx.ArgDate, Required: true},
			{Name: "startTime", Type: contractx.ArgTime, Required: true},
			{Name: "endTime", Type: contractx.ArgTime, Required: true},
			{Name: "purpose", Type: contractx.ArgString},
			{Name: "attendees", Type: contractx.ArgInteger},
		},
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Register(bookRoomDescriptor(), noopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := r.Register(bookRoomDescriptor(), noopHandler)
	if !errors.Is(err, contractx.ErrDuplicateAction) {
		t.Fatalf("Register() error = %v, want ErrDuplicateAction", err)
	}
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	t.Parallel()

	r := New()
	err := r.Register(contractx.ActionDescriptor{Name: "   "}, noopHandler)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Register() error = %v, want ErrValidation", err)
	}
}

func TestRegisterRejectsNilHandler(t *testing.T) {
	t.Parallel()

	r := New()
	err := r.Register(bookRoomDescriptor(), nil)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Register() error = %v, want ErrValidation", err)
	}
}

func TestDescriptorsKeepRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := New()
	names := []string{"ticket.create", "room.book", "gallery.search"}
	for _, name := range names {
		if err := r.Register(contractx.ActionDescriptor{Name: name}, noopHandler); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	descs := r.Descriptors()
	if len(descs) != len(names) {
		t.Fatalf("Descriptors() len = %d, want %d", len(descs), len(names))
	}
	for i, name := range names {
		if descs[i].Name != name {
			t.Fatalf("Descriptors()[%d] = %s, want %s", i, descs[i].Name, name)
		}
	}
}

func TestValidateUnknownAction(t *testing.T) {
	t.Parallel()

	r := New()
	err := r.Validate(contractx.ActionInvocation{Action: "room.teleport"})
	if !errors.Is(err, contractx.ErrUnknownAction) {
		t.Fatalf("Validate() error = %v, want ErrUnknownAction", err)
	}
}

func TestValidateAcceptsCompleteInvocation(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Register(bookRoomDescriptor(), noopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := r.Validate(contractx.ActionInvocation{
		Action: "room.book",
		Args: map[string]any{
			"roomId":    "meeting-2",
			"date":      "2026-09-01",
			"startTime": "14:00",
			"endTime":   "16:00",
			"attendees": float64(12), // JSON numbers arrive as float64
		},
	})
	if err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidateEnumeratesEveryViolation(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Register(bookRoomDescriptor(), noopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := r.Validate(contractx.ActionInvocation{
		Action: "room.book",
		Args: map[string]any{
			"roomId":    "meeting-2",
			"startTime": "25:99",
			"attendees": 2.5,
			"floor":     3,
		},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ValidationError to unwrap to ErrValidation, got %v", err)
	}

	wantMissing := []string{"date", "endTime"}
	if len(verr.Missing) != len(wantMissing) {
		t.Fatalf("Missing = %v, want %v", verr.Missing, wantMissing)
	}
	for i, name := range wantMissing {
		if verr.Missing[i] != name {
			t.Fatalf("Missing = %v, want %v", verr.Missing, wantMissing)
		}
	}

	wantInvalid := []string{"attendees", "floor", "startTime"}
	got := verr.InvalidNames()
	if len(got) != len(wantInvalid) {
		t.Fatalf("Invalid = %v, want names %v", verr.Invalid, wantInvalid)
	}
	for i, name := range wantInvalid {
		if got[i] != name {
			t.Fatalf("InvalidNames() = %v, want %v", got, wantInvalid)
		}
	}
}

func TestValidateExactlyOneMissingField(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Register(bookRoomDescriptor(), noopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// "book a room tomorrow at 2pm" with no room picked: everything resolved
	// except roomId.
	err := r.Validate(contractx.ActionInvocation{
		Action: "room.book",
		Args: map[string]any{
			"date":      "2026-09-01",
			"startTime": "14:00",
			"endTime":   "15:00",
		},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	if len(verr.Missing) != 1 || verr.Missing[0] != "roomId" {
		t.Fatalf("Missing = %v, want [roomId]", verr.Missing)
	}
	if len(verr.Invalid) != 0 {
		t.Fatalf("Invalid = %v, want none", verr.Invalid)
	}
}

func TestValidateEnumCaseInsensitive(t *testing.T) {
	t.Parallel()

	r := New()
	desc := contractx.ActionDescriptor{
		Name: "gallery.search",
		Args: []contractx.ArgSpec{
			{Name: "query", Type: contractx.ArgString, Required: true},
			{Name: "kind", Type: contractx.ArgString, Enum: []string{"photo", "video"}},
		},
	}
	if err := r.Register(desc, noopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := r.Validate(contractx.ActionInvocation{
		Action: "gallery.search",
		Args:   map[string]any{"query": "กีฬาสี", "kind": "Photo"},
	}); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	err := r.Validate(contractx.ActionInvocation{
		Action: "gallery.search",
		Args:   map[string]any{"query": "กีฬาสี", "kind": "audio"},
	})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
}

func TestValidateBlankStringCountsAsMissing(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Register(bookRoomDescriptor(), noopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := r.Validate(contractx.ActionInvocation{
		Action: "room.book",
		Args: map[string]any{
			"roomId":    "  ",
			"date":      "2026-09-01",
			"startTime": "14:00",
			"endTime":   "15:00",
		},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	if len(verr.Missing) != 1 || verr.Missing[0] != "roomId" {
		t.Fatalf("Missing = %v, want [roomId]", verr.Missing)
	}
}
