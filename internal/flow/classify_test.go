package flow_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rahul/travelcheck/internal/flow"
)

func TestClassifyMessage(t *testing.T) {
	tests := map[string]struct {
		msg      string
		expLabel string
	}{
		"select cover":         {msg: `waiting for testid=retail >> role=button[name="Select Cover"]`, expLabel: flow.StepSelectCover},
		"fullname":             {msg: `fill role=textbox[name="Fullname"]: element not found`, expLabel: flow.StepPersonalInfo},
		"phone":                {msg: "Phone input detached", expLabel: flow.StepPersonalInfo},
		"beneficiary fullname": {msg: "beneficiary Fullname missing", expLabel: flow.StepBeneficiary},
		"step 6 email":         {msg: "step 6 email did not accept input", expLabel: flow.StepBeneficiary},
		"traveller":            {msg: `role=spinbutton[name="Traveller"] not found`, expLabel: flow.StepTravelDetails},
		"departure":            {msg: "Departure Date rejected", expLabel: flow.StepTravelDetails},
		"omk-select":           {msg: "click css=omk-select: timeout", expLabel: flow.StepTravelDetails},
		"proceed to buy":       {msg: `role=button[name="Proceed to buy"]`, expLabel: flow.StepReview},
		"kra":                  {msg: `fill role=textbox[name="KRA PIN"]`, expLabel: flow.StepTravellerDocs},
		"upload":               {msg: "upload failed", expLabel: flow.StepTravellerDocs},
		"consent":              {msg: "consent checkbox stayed unchecked", expLabel: flow.StepTerms},
		"process payment":      {msg: `role=button[name="Process Payment"] not found`, expLabel: flow.StepPayment},
		"unknown":              {msg: "browser crashed", expLabel: flow.UnknownStep},
		"empty":                {msg: "", expLabel: flow.UnknownStep},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expLabel, flow.ClassifyMessage(test.msg))
		})
	}
}

func TestClassifyPrefersRecordedStep(t *testing.T) {
	assert := assert.New(t)

	// The message alone would classify as travel details.
	cause := errors.New("Traveller spinbutton missing")
	err := fmt.Errorf("run failed: %w", &flow.StepError{
		Step: flow.Step{Ordinal: 7, Label: flow.StepTerms},
		Err:  cause,
	})

	assert.Equal(flow.StepTerms, flow.Classify(err))
	assert.ErrorIs(err, cause)
}

func TestClassifyIsTotal(t *testing.T) {
	assert.Equal(t, flow.UnknownStep, flow.Classify(nil))
	assert.Equal(t, flow.UnknownStep, flow.Classify(errors.New("???")))
}

func TestClassifyEveryLabelHasAKeyword(t *testing.T) {
	keywords := map[string]string{
		flow.StepSelectCover:   "select cover",
		flow.StepPersonalInfo:  "fullname",
		flow.StepTravelDetails: "traveller",
		flow.StepReview:        "proceed to buy",
		flow.StepTravellerDocs: "date of birth",
		flow.StepBeneficiary:   "beneficiary email",
		flow.StepTerms:         "terms",
		flow.StepPayment:       "process payment",
	}

	for _, label := range flow.Labels(flow.TravelSteps(flow.Documents{})) {
		kw, ok := keywords[label]
		if assert.True(t, ok, "no keyword for %s", label) {
			assert.Equal(t, label, flow.Classify(errors.New(kw)))
		}
	}
}
