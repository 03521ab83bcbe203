package view

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"finitefield.org/storenav/internal/nav"
)

// DefaultSelectedClass is applied to the list item of the active section.
const DefaultSelectedClass = "selected"

// NavOptions tunes the navigation markup.
type NavOptions struct {
	// Label is the accessible name of the <nav> landmark. Empty omits it.
	Label string
	// ListClass is set on the <ul> when non-empty.
	ListClass string
	// SelectedClass marks active items; defaults to DefaultSelectedClass.
	SelectedClass string
}

// NavList renders the navigation as <nav><ul><li><a>…</a></li>…</ul></nav>.
// Only active items carry the selected class and aria-current="page".
func NavList(list nav.List, opts NavOptions) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return html.Render(w, NavNode(list, opts))
	})
}

// NavNode builds the markup tree for list.
func NavNode(list nav.List, opts NavOptions) *html.Node {
	selected := strings.TrimSpace(opts.SelectedClass)
	if selected == "" {
		selected = DefaultSelectedClass
	}

	root := element(atom.Nav)
	if opts.Label != "" {
		root.Attr = append(root.Attr, attr("aria-label", opts.Label))
	}
	ul := element(atom.Ul)
	if opts.ListClass != "" {
		ul.Attr = append(ul.Attr, attr("class", opts.ListClass))
	}
	root.AppendChild(ul)

	for _, it := range list {
		li := element(atom.Li)
		a := element(atom.A, attr("href", string(templ.URL(it.URL))))
		if it.IsActive {
			li.Attr = append(li.Attr, attr("class", selected))
			a.Attr = append(a.Attr, attr("aria-current", "page"))
		}
		a.AppendChild(&html.Node{Type: html.TextNode, Data: it.Title})
		li.AppendChild(a)
		ul.AppendChild(li)
	}
	return root
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}
