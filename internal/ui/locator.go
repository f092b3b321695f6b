package ui

import (
	"fmt"
	"strings"
)

// Strategy says how a Locator finds its element.
type Strategy string

const (
	ByCSS    Strategy = "css"
	ByRole   Strategy = "role"
	ByTestID Strategy = "testid"
)

// TestIDAttribute is the attribute matched by TestID locators.
const TestIDAttribute = "data-testid"

// Locator identifies one element on the page; when several elements match, the
// first in document order wins. Locators can be scoped inside another locator,
// in which case the parent is resolved first and the child is searched only
// within it.
type Locator struct {
	Strategy Strategy
	// Selector is the CSS selector or the test id.
	Selector string
	// AXRole and Name select by ARIA role and accessible name.
	AXRole string
	Name   string
	// Text, when set, keeps only elements whose visible text contains it.
	Text string

	parent *Locator
}

func CSS(selector string) Locator {
	return Locator{Strategy: ByCSS, Selector: selector}
}

func Role(role, name string) Locator {
	return Locator{Strategy: ByRole, AXRole: role, Name: name}
}

func TestID(id string) Locator {
	return Locator{Strategy: ByTestID, Selector: id}
}

// CSS returns a locator for selector scoped inside l.
func (l Locator) CSS(selector string) Locator {
	child := CSS(selector)
	child.parent = &l
	return child
}

// Role returns a role locator scoped inside l.
func (l Locator) Role(role, name string) Locator {
	child := Role(role, name)
	child.parent = &l
	return child
}

// WithText narrows l to elements containing text.
func (l Locator) WithText(text string) Locator {
	l.Text = text
	return l
}

// Chain returns the locator and its ancestors, outermost first.
func (l Locator) Chain() []Locator {
	var chain []Locator
	for cur := &l; cur != nil; cur = cur.parent {
		seg := *cur
		seg.parent = nil
		chain = append([]Locator{seg}, chain...)
	}
	return chain
}

// CSSSelector returns the selector used to query CSS and test-id locators.
func (l Locator) CSSSelector() string {
	if l.Strategy == ByTestID {
		return fmt.Sprintf("[%s=%q]", TestIDAttribute, l.Selector)
	}
	return l.Selector
}

func (l Locator) segment() string {
	var s string
	switch l.Strategy {
	case ByRole:
		s = fmt.Sprintf("role=%s[name=%q]", l.AXRole, l.Name)
	case ByTestID:
		s = fmt.Sprintf("testid=%s", l.Selector)
	default:
		s = fmt.Sprintf("css=%s", l.Selector)
	}
	if l.Text != "" {
		s += fmt.Sprintf("[text=%q]", l.Text)
	}
	return s
}

// String renders the locator the way it shows up in errors and logs, e.g.
// `testid=retail >> role=button[name="Select Cover"]`.
func (l Locator) String() string {
	chain := l.Chain()
	parts := make([]string, 0, len(chain))
	for _, seg := range chain {
		parts = append(parts, seg.segment())
	}
	return strings.Join(parts, " >> ")
}
