// internal/browser/session/refs.go
package session

import (
	"context"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/webnav/internal/browser/dom"
	"github.com/xkilldash9x/webnav/internal/webnav"
)

// InstallRefs makes table the reference table of the current document,
// replacing any earlier one. This is the hook the snapshot operation uses.
func (p *Page) InstallRefs(table *webnav.RefTable) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPageClosed
	}
	if p.doc == nil {
		return ErrNoDocument
	}
	p.doc.refs = table
	if table != nil {
		p.logger.Debug("Installed reference table", zap.Int("count", table.Len()), zap.Strings("refs", table.Refs()))
	}
	return nil
}

// InstallRefSelectors builds a reference table by resolving each selector
// against the current document and installs it. Every selector must match.
func (p *Page) InstallRefSelectors(ctx context.Context, selectors map[string]string) error {
	d, err := p.current()
	if err != nil {
		return err
	}

	table := webnav.NewRefTable()
	err = d.rt.Do(ctx, func(*goja.Runtime) error {
		root := d.rt.Bridge().Root()
		for ref, selector := range selectors {
			n, err := dom.Locate(root, webnav.Query{Selector: selector})
			if err != nil {
				return err
			}
			table.Put(ref, n)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return p.InstallRefs(table)
}

// ResolveRef stamps the element recorded for ref with the ref attribute and
// returns the selector that finds it again. An element that has left the
// document counts as stale.
func (p *Page) ResolveRef(ctx context.Context, ref string) (*webnav.RefResult, error) {
	d, err := p.current()
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	table := d.refs
	p.mu.RUnlock()
	if table == nil {
		return nil, webnav.NewReferenceUnavailableError()
	}
	n, ok := table.Lookup(ref)
	if !ok {
		return nil, webnav.NewReferenceStaleError(ref)
	}

	var result *webnav.RefResult
	err = d.rt.Do(ctx, func(*goja.Runtime) error {
		if !dom.IsConnected(n, d.rt.Bridge().Root()) {
			p.logger.Debug("Reference points at a detached element", zap.String("ref", ref))
			return webnav.NewReferenceStaleError(ref)
		}
		if err := unstampOthers(d.rt.Bridge().Root(), ref, n); err != nil {
			return err
		}
		dom.SetAttr(n, webnav.RefAttribute, ref)
		result = &webnav.RefResult{
			Resolved: true,
			Ref:      ref,
			Selector: webnav.RefSelector(ref),
			Tag:      dom.TagName(n),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// unstampOthers removes the ref attribute from elements stamped with ref by an
// earlier table, so the selector only finds n.
func unstampOthers(root *html.Node, ref string, n *html.Node) error {
	stamped, err := dom.QuerySelectorAll(root, webnav.RefSelector(ref))
	if err != nil {
		return err
	}
	for _, other := range stamped {
		if other != n {
			dom.RemoveAttr(other, webnav.RefAttribute)
		}
	}
	return nil
}
