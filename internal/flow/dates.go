package flow

import "time"

// DateLayout is the DD/MM/YYYY format the target's date inputs accept.
const DateLayout = "02/01/2006"

// DateFrom returns the calendar day days after now, formatted with DateLayout.
func DateFrom(now time.Time, days int) string {
	return now.AddDate(0, 0, days).Format(DateLayout)
}
