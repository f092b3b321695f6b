package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"

	"github.com/rahul/travelcheck/internal/ui"
)

// queryFunction searches the receiver and every open shadow root below it,
// breadth first, for the first element matching selector (and containing
// text, when set).
const queryFunction = `function() {
	const sel = %s, text = %s;
	const roots = [this];
	while (roots.length) {
		const root = roots.shift();
		for (const el of root.querySelectorAll(sel)) {
			if (!text || (el.innerText || el.textContent || "").includes(text)) return el;
		}
		for (const el of root.querySelectorAll("*")) {
			if (el.shadowRoot) roots.push(el.shadowRoot);
		}
	}
	return null;
}`

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func cssQuery(selector, text string) string {
	return fmt.Sprintf(queryFunction, jsString(selector), jsString(text))
}

type target struct {
	id   cdp.BackendNodeID
	x, y float64
}

// resolve polls until loc matches an element. With needBox the element must
// also have a layout box, which is where clicks land.
func (s *Session) resolve(ctx context.Context, loc ui.Locator, needBox bool) (target, error) {
	var lastErr error
	for {
		t, ok, err := s.find(ctx, loc, needBox)
		if err != nil {
			lastErr = err
		} else if ok {
			return t, nil
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return target{}, fmt.Errorf("waiting for %s: %w (last error: %v)", loc, ui.ErrNotFound, lastErr)
			}
			return target{}, fmt.Errorf("waiting for %s: %w", loc, ui.ErrNotFound)
		case <-s.opts.Clock.After(s.opts.PollInterval):
		}
	}
}

func (s *Session) find(ctx context.Context, loc ui.Locator, needBox bool) (target, bool, error) {
	scope, exc, err := runtime.Evaluate("document").Do(ctx)
	if err != nil {
		return target{}, false, err
	}
	if exc != nil {
		return target{}, false, fmt.Errorf("document unavailable: %s", exc.Text)
	}

	var id cdp.BackendNodeID
	for i, seg := range loc.Chain() {
		if i > 0 {
			scope, err = dom.ResolveNode().WithBackendNodeID(id).Do(ctx)
			if err != nil {
				return target{}, false, err
			}
		}
		id, err = findIn(ctx, scope.ObjectID, seg)
		if err != nil || id == 0 {
			return target{}, false, err
		}
	}

	t := target{id: id}
	if !needBox {
		return t, true, nil
	}

	if err := dom.ScrollIntoViewIfNeeded().WithBackendNodeID(id).Do(ctx); err != nil {
		return target{}, false, err
	}
	quads, err := dom.GetContentQuads().WithBackendNodeID(id).Do(ctx)
	if err != nil {
		return target{}, false, err
	}
	x, y, ok := quadCenter(quads)
	if !ok {
		return target{}, false, nil
	}
	t.x, t.y = x, y
	return t, true, nil
}

func findIn(ctx context.Context, scope runtime.RemoteObjectID, seg ui.Locator) (cdp.BackendNodeID, error) {
	if seg.Strategy == ui.ByRole {
		return findByRole(ctx, scope, seg)
	}

	obj, exc, err := runtime.CallFunctionOn(cssQuery(seg.CSSSelector(), seg.Text)).
		WithObjectID(scope).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if exc != nil {
		return 0, fmt.Errorf("query %s: %s", seg, exc.Text)
	}
	if obj == nil || obj.ObjectID == "" {
		return 0, nil
	}
	node, err := dom.DescribeNode().WithObjectID(obj.ObjectID).Do(ctx)
	if err != nil {
		return 0, err
	}
	return node.BackendNodeID, nil
}

func findByRole(ctx context.Context, scope runtime.RemoteObjectID, seg ui.Locator) (cdp.BackendNodeID, error) {
	nodes, err := accessibility.QueryAXTree().
		WithObjectID(scope).
		WithRole(seg.AXRole).
		Do(ctx)
	if err != nil {
		return 0, err
	}

	cands := make([]axCandidate, 0, len(nodes))
	for _, n := range nodes {
		cands = append(cands, axCandidate{
			id:      n.BackendDOMNodeID,
			name:    axName(n),
			ignored: n.Ignored,
		})
	}
	return pickCandidate(cands, seg.Name), nil
}

type axCandidate struct {
	id      cdp.BackendNodeID
	name    string
	ignored bool
}

// pickCandidate prefers an exact accessible name and falls back to a case
// insensitive substring match.
func pickCandidate(cands []axCandidate, name string) cdp.BackendNodeID {
	for _, c := range cands {
		if !c.ignored && c.id != 0 && c.name == name {
			return c.id
		}
	}
	want := strings.ToLower(name)
	for _, c := range cands {
		if !c.ignored && c.id != 0 && strings.Contains(strings.ToLower(c.name), want) {
			return c.id
		}
	}
	return 0
}

func axName(n *accessibility.Node) string {
	if n.Name == nil {
		return ""
	}
	raw := []byte(n.Name.Value)
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return strings.Trim(string(raw), `"`)
	}
	return s
}

// quadCenter returns the centre of the first non-degenerate quad.
func quadCenter(quads []dom.Quad) (float64, float64, bool) {
	for _, q := range quads {
		if len(q) != 8 {
			continue
		}
		var x, y float64
		for i := 0; i < 8; i += 2 {
			x += q[i]
			y += q[i+1]
		}
		x, y = x/4, y/4
		if q[0] == q[4] && q[1] == q[5] {
			continue
		}
		return x, y, true
	}
	return 0, 0, false
}
