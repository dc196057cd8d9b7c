package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestServiceLabel(t *testing.T) {
	tests := map[ServiceTag]string{
		ServiceRepair:   "Photo Restoration",
		ServiceColorize: "Colorization",
		ServiceEnhance:  "Quality Enhancement",
		ServiceDamage:   "Damage Repair",
		"face_boost":    "Face Boost",
	}
	for tag, want := range tests {
		if got := tag.Label(); got != want {
			t.Fatalf("%q.Label() = %q, want %q", tag, got, want)
		}
	}
}

func TestParseServices(t *testing.T) {
	got, err := ParseServices(`["Colorize"," repair ","colorize",""]`)
	if err != nil {
		t.Fatalf("ParseServices error: %v", err)
	}
	want := Services{ServiceColorize, ServiceRepair}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseServices = %v, want %v", got, want)
	}
	if !got.Has(ServiceRepair) || got.Has(ServiceEnhance) {
		t.Fatalf("unexpected Has results for %v", got)
	}

	empty, err := ParseServices("  ")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty set, got %v err=%v", empty, err)
	}

	if _, err := ParseServices(`{"colorize":true}`); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
