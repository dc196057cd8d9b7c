// Package flow models the linear checkout the client walks through.
package flow

import (
	"errors"
	"fmt"
)

// Step is a screen in the checkout.
type Step string

const (
	StepUpload   Step = "upload"
	StepServices Step = "services"
	StepPreview  Step = "preview"
	StepPayment  Step = "payment"
	StepComplete Step = "complete"
)

// Event is a user action or a successful API response.
type Event string

const (
	EventFilesSelected  Event = "files_selected"
	EventServicesChosen Event = "services_chosen"
	EventRestored       Event = "restored"
	EventCheckout       Event = "checkout"
	EventPaid           Event = "paid"
)

var ErrInvalidTransition = errors.New("invalid flow transition")

var transitions = map[Step]map[Event]Step{
	StepUpload:   {EventFilesSelected: StepServices},
	StepServices: {EventServicesChosen: StepPreview},
	StepPreview:  {EventRestored: StepPreview, EventCheckout: StepPayment},
	StepPayment:  {EventPaid: StepComplete},
}

// Advance returns the step reached from `from` on ev. Steps never move
// backwards and never skip.
func Advance(from Step, ev Event) (Step, error) {
	next, ok := transitions[from][ev]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
	}
	return next, nil
}
