package flow

import (
	"time"

	"github.com/rahul/travelcheck/internal/ui"
)

// TargetURL is the landing page of the monitored purchase flow.
const TargetURL = "https://www.oldmutual.co.ke/app/public/travel-insurance"

const (
	StepSelectCover     = "Step 1: Select Cover Type"
	StepPersonalInfo    = "Step 2: Personal Information"
	StepTravelDetails   = "Step 3: Travel Details"
	StepReview          = "Step 4: Review & Proceed"
	StepTravellerDocs   = "Step 5: Traveller Details & Documents"
	StepBeneficiary     = "Step 6: Beneficiary Details"
	StepTerms           = "Step 7: Terms & Conditions"
	StepPayment         = "Step 8: Payment Processing"
	UnknownStep         = "Unknown Step"
	departureOffsetDays = 5
	returnOffsetDays    = 6
)

// Literal test data typed into the forms.
const (
	TestFullName    = "Test User"
	TestPhone       = "0712345678"
	TestEmail       = "test@user.com"
	TestTravellers  = "20"
	TestDateOfBirth = "12/12/2000"
	TestIDNumber    = "12345675"
	TestPassportNo  = "12345678"
	TestKRAPin      = "A123456789K"
)

// Documents are the local files uploaded as traveller documents.
type Documents struct {
	ID       string
	KRA      string
	Passport string
}

var (
	btnContinue = ui.Role("button", "Continue")
	innerCircle = ui.CSS(".inner-circle")
)

func ms(n int) Pause { return Pause{D: time.Duration(n) * time.Millisecond} }

func contactDetails() []Action {
	return []Action{
		Fill{Target: ui.Role("textbox", "Fullname"), Value: TestFullName},
		ms(200),
		Fill{Target: ui.Role("textbox", "Phone"), Value: TestPhone},
		ms(200),
		Fill{Target: ui.Role("textbox", "Email"), Value: TestEmail},
	}
}

// TravelSteps returns the fixed eight-step purchase flow.
func TravelSteps(docs Documents) []Step {
	personal := contactDetails()
	personal = append(personal,
		Dismiss{Target: ui.Role("button", "Close tooltip"), Within: 2 * time.Second},
		ms(300),
		Capture{},
		Click{Target: btnContinue},
		WaitIdle{},
		ms(500),
	)

	beneficiary := contactDetails()
	beneficiary = append(beneficiary,
		ms(1000),
		Capture{},
		Click{Target: btnContinue},
		WaitIdle{},
		ms(1000),
	)

	return []Step{
		{
			Ordinal: 1,
			Label:   StepSelectCover,
			Actions: []Action{
				Goto{URL: TargetURL},
				WaitIdle{},
				ms(300),
				Capture{},
				Click{Target: ui.TestID("retail").Role("button", "Select Cover")},
				ms(500),
			},
		},
		{
			Ordinal: 2,
			Label:   StepPersonalInfo,
			Actions: personal,
		},
		{
			Ordinal: 3,
			Label:   StepTravelDetails,
			Actions: []Action{
				Click{Target: innerCircle},
				ms(300),
				Fill{Target: ui.Role("spinbutton", "Traveller"), Value: TestTravellers},
				ms(300),
				// Option labels are not stable on the target page, so the
				// destination is picked by position.
				Choose{Choice: Choice{
					Trigger:  ui.CSS("omk-select"),
					Option:   "omk-select-option",
					Inner:    "md-select-option",
					Position: 5,
					Settle:   500 * time.Millisecond,
				}},
				ms(300),
				FillDate{Target: ui.Role("textbox", "Departure Date"), OffsetDays: departureOffsetDays},
				ms(200),
				FillDate{Target: ui.Role("textbox", "Return Date"), OffsetDays: returnOffsetDays},
				ms(200),
				Capture{},
				Click{Target: btnContinue},
				WaitIdle{},
				ms(2000),
			},
		},
		{
			Ordinal: 4,
			Label:   StepReview,
			Actions: []Action{
				WaitIdle{},
				Capture{},
				Click{Target: btnContinue},
				ms(1000),
				Click{Target: ui.Role("button", "Proceed to buy")},
				ms(1000),
			},
		},
		{
			Ordinal: 5,
			Label:   StepTravellerDocs,
			Actions: []Action{
				WaitIdle{},
				Click{Target: btnContinue},
				ms(1000),
				Click{Target: ui.Role("button", "Add details")},
				ms(500),
				Choose{Choice: Choice{
					Trigger:  ui.CSS("#label"),
					Option:   "omk-select-option",
					Inner:    "md-select-option",
					Position: 2,
					Settle:   300 * time.Millisecond,
				}},
				ms(300),
				Click{Target: innerCircle},
				ms(300),
				Fill{Target: ui.Role("textbox", "Date of birth"), Value: TestDateOfBirth},
				ms(200),
				Fill{Target: ui.Role("spinbutton", "Id Number"), Value: TestIDNumber},
				ms(200),
				Fill{Target: ui.Role("textbox", "Passport No"), Value: TestPassportNo},
				ms(200),
				Fill{Target: ui.Role("textbox", "KRA PIN"), Value: TestKRAPin},
				ms(200),
				Upload{Target: ui.CSS("#upload-idDoc input[type='file']"), Files: []string{docs.ID}},
				ms(500),
				Upload{Target: ui.CSS("#upload-kraDoc input[type='file']"), Files: []string{docs.KRA}},
				ms(500),
				Upload{Target: ui.CSS("#upload-passportDoc input[type='file']"), Files: []string{docs.Passport}},
				ms(500),
				Capture{},
				Click{Target: btnContinue},
				WaitIdle{},
				ms(1000),
			},
		},
		{
			Ordinal: 6,
			Label:   StepBeneficiary,
			Actions: beneficiary,
		},
		{
			Ordinal: 7,
			Label:   StepTerms,
			Actions: []Action{
				Check{Target: ui.TestID("consentForProductsAndServicesRelatedWithMyPolicy").CSS("#input")},
				ms(200),
				Check{Target: ui.TestID("termsAndConditions").CSS("#input")},
				ms(1000),
				Capture{},
				Click{Target: btnContinue},
				WaitIdle{},
				ms(1000),
			},
		},
		{
			Ordinal: 8,
			Label:   StepPayment,
			Actions: []Action{
				Click{Target: ui.Role("button", "Process Payment")},
				ms(2000),
			},
		},
	}
}

// Labels returns the labels of steps in order.
func Labels(steps []Step) []string {
	labels := make([]string, 0, len(steps))
	for _, s := range steps {
		labels = append(labels, s.Label)
	}
	return labels
}
