package flow

import (
	"errors"
	"testing"
)

func TestAdvance(t *testing.T) {
	tests := []struct {
		from    Step
		ev      Event
		want    Step
		wantErr bool
	}{
		{from: StepUpload, ev: EventFilesSelected, want: StepServices},
		{from: StepServices, ev: EventServicesChosen, want: StepPreview},
		{from: StepPreview, ev: EventRestored, want: StepPreview},
		{from: StepPreview, ev: EventCheckout, want: StepPayment},
		{from: StepPayment, ev: EventPaid, want: StepComplete},
		{from: StepUpload, ev: EventCheckout, want: StepUpload, wantErr: true},
		{from: StepServices, ev: EventPaid, want: StepServices, wantErr: true},
		{from: StepComplete, ev: EventFilesSelected, want: StepComplete, wantErr: true},
	}

	for _, tc := range tests {
		got, err := Advance(tc.from, tc.ev)
		if tc.wantErr != (err != nil) {
			t.Fatalf("Advance(%s, %s) err = %v, wantErr %v", tc.from, tc.ev, err, tc.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if got != tc.want {
			t.Fatalf("Advance(%s, %s) = %s, want %s", tc.from, tc.ev, got, tc.want)
		}
	}
}

func TestCheckoutPath(t *testing.T) {
	step := StepUpload
	for _, ev := range []Event{EventFilesSelected, EventServicesChosen, EventRestored, EventRestored, EventCheckout, EventPaid} {
		next, err := Advance(step, ev)
		if err != nil {
			t.Fatalf("Advance(%s, %s) error: %v", step, ev, err)
		}
		step = next
	}
	if step != StepComplete {
		t.Fatalf("final step = %s, want %s", step, StepComplete)
	}
}
