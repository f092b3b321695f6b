package flow

import "strings"

type keywordRule struct {
	keywords []string
	label    string
}

// Order matters: the first rule with a matching keyword wins.
var keywordRules = []keywordRule{
	{keywords: []string{"select cover"}, label: StepSelectCover},
	{keywords: []string{"fullname", "phone", "email"}, label: StepPersonalInfo},
	{keywords: []string{"traveller", "departure", "return", "omk-select"}, label: StepTravelDetails},
	{keywords: []string{"proceed to buy"}, label: StepReview},
	{keywords: []string{"add details", "date of birth", "id number", "passport", "kra", "upload"}, label: StepTravellerDocs},
	{keywords: []string{"consent", "terms"}, label: StepTerms},
	{keywords: []string{"process payment"}, label: StepPayment},
}

// Classify names the step a run failed at. The step recorded by the executor
// wins; otherwise the error text is matched against step keywords. It always
// returns a label, UnknownStep when nothing matches.
func Classify(err error) string {
	if err == nil {
		return UnknownStep
	}
	if step, ok := FailedStep(err); ok && step.Label != "" {
		return step.Label
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage is the keyword fallback of Classify.
func ClassifyMessage(msg string) string {
	lower := strings.ToLower(msg)
	for _, rule := range keywordRules {
		if !containsAny(lower, rule.keywords) {
			continue
		}
		// Contact fields exist on both the personal and the beneficiary forms.
		if rule.label == StepPersonalInfo && containsAny(lower, []string{"beneficiary", "step 6"}) {
			return StepBeneficiary
		}
		return rule.label
	}
	return UnknownStep
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
