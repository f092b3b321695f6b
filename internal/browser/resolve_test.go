package browser

import (
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/stretchr/testify/assert"
)

func TestPickCandidate(t *testing.T) {
	cands := []axCandidate{
		{id: 10, name: "Select Cover Plus", ignored: false},
		{id: 11, name: "Select Cover", ignored: true},
		{id: 12, name: "select cover"},
		{id: 13, name: "Select Cover"},
	}

	tests := map[string]struct {
		name string
		exp  cdp.BackendNodeID
	}{
		"Exact name wins over earlier partial matches.": {
			name: "Select Cover",
			exp:  13,
		},
		"Case insensitive substring falls back to document order.": {
			name: "cover plus",
			exp:  10,
		},
		"Unmatched name resolves nothing.": {
			name: "Proceed To Pay",
			exp:  0,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, pickCandidate(cands, test.name))
		})
	}
}

func TestQuadCenter(t *testing.T) {
	tests := map[string]struct {
		quads []dom.Quad
		expX  float64
		expY  float64
		expOK bool
	}{
		"No quads means no layout box.": {},
		"Degenerate quad is skipped.": {
			quads: []dom.Quad{{5, 5, 5, 5, 5, 5, 5, 5}},
		},
		"Centre of the first usable quad.": {
			quads: []dom.Quad{
				{1, 2},
				{10, 20, 30, 20, 30, 60, 10, 60},
				{0, 0, 1, 0, 1, 1, 0, 1},
			},
			expX:  20,
			expY:  40,
			expOK: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			x, y, ok := quadCenter(test.quads)
			assert.Equal(t, test.expOK, ok)
			assert.Equal(t, test.expX, x)
			assert.Equal(t, test.expY, y)
		})
	}
}

func TestCSSQueryQuotesArguments(t *testing.T) {
	fn := cssQuery(`[data-testid="retail"]`, `Agree "all"`)

	assert.Contains(t, fn, `const sel = "[data-testid=\"retail\"]", text = "Agree \"all\"";`)
	assert.Contains(t, fn, "shadowRoot")
}
