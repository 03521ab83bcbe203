package view

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/storenav/internal/nav"
)

func renderNav(t *testing.T, list nav.List, opts NavOptions) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, NavList(list, opts).Render(context.Background(), &buf))
	return buf.String()
}

func parseHTML(t *testing.T, body string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestNavListMarksOnlyActiveItem(t *testing.T) {
	t.Parallel()

	list := nav.Render([]nav.Section{
		{ID: "1", Title: "Home", URL: "/"},
		{ID: "2", Title: "About", URL: "/about"},
	}, nav.ActiveID("2"))

	out := renderNav(t, list, NavOptions{Label: "Main"})
	require.Equal(t,
		`<nav aria-label="Main"><ul><li><a href="/">Home</a></li><li class="selected"><a href="/about" aria-current="page">About</a></li></ul></nav>`,
		out)
}

func TestNavListPreservesOrderAndClosesTags(t *testing.T) {
	t.Parallel()

	sections := []nav.Section{
		{ID: "c", Title: "Cart", URL: "/cart"},
		{ID: "a", Title: "Account", URL: "/account"},
		{ID: "s", Title: "Shop", URL: "/shop"},
	}
	out := renderNav(t, nav.Render(sections, nav.Active{}), NavOptions{ListClass: "menu"})

	require.Equal(t, 3, strings.Count(out, "<li>"))
	require.Equal(t, 3, strings.Count(out, "</li>"))
	require.Equal(t, 3, strings.Count(out, "</a>"))
	require.True(t, strings.HasSuffix(out, "</ul></nav>"))
	require.NotContains(t, out, "selected")
	require.NotContains(t, out, "aria-label")

	doc := parseHTML(t, out)
	require.Equal(t, "menu", doc.Find("nav > ul").AttrOr("class", ""))
	var titles []string
	doc.Find("nav > ul > li > a").Each(func(_ int, s *goquery.Selection) {
		titles = append(titles, s.Text())
	})
	require.Equal(t, []string{"Cart", "Account", "Shop"}, titles)
}

func TestNavListCustomSelectedClassAndDuplicates(t *testing.T) {
	t.Parallel()

	list := nav.Render([]nav.Section{
		{ID: "x", Title: "One", URL: "/one"},
		{ID: "y", Title: "Two", URL: "/two"},
		{ID: "x", Title: "Three", URL: "/three"},
	}, nav.ActiveID("x"))

	doc := parseHTML(t, renderNav(t, list, NavOptions{SelectedClass: "is-current"}))
	require.Equal(t, 2, doc.Find("li.is-current").Length())
	require.Equal(t, 2, doc.Find(`a[aria-current="page"]`).Length())
	require.Equal(t, "Two", doc.Find("li:not(.is-current) a").Text())
}

func TestNavListEmpty(t *testing.T) {
	t.Parallel()

	require.Equal(t, "<nav><ul></ul></nav>", renderNav(t, nav.Render(nil, nav.Active{}), NavOptions{}))
}

func TestNavListEscapesContent(t *testing.T) {
	t.Parallel()

	list := nav.List{
		{Title: `<script>alert("x")</script>`, URL: `/search?q="a"&b=1`},
		{Title: "Evil", URL: "javascript:alert(1)"},
		{Title: "", URL: ""},
	}
	out := renderNav(t, list, NavOptions{Label: `Main "nav"`})

	require.NotContains(t, out, "<script>")
	require.Contains(t, out, "&lt;script&gt;")
	require.NotContains(t, out, "javascript:")

	doc := parseHTML(t, out)
	require.Equal(t, `Main "nav"`, doc.Find("nav").AttrOr("aria-label", ""))
	links := doc.Find("a")
	require.Equal(t, 3, links.Length())
	require.Equal(t, `/search?q="a"&b=1`, links.Eq(0).AttrOr("href", ""))
	require.Equal(t, `<script>alert("x")</script>`, links.Eq(0).Text())
	href, ok := links.Eq(2).Attr("href")
	require.True(t, ok)
	require.Empty(t, href)
}
