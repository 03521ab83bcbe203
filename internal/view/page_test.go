package view

import (
	"bytes"
	"context"
	"html/template"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/storenav/internal/nav"
)

func TestPageEmbedsNavigationAndBreadcrumbs(t *testing.T) {
	t.Parallel()

	sections := []nav.Section{
		{ID: "home", Title: "Home", URL: "/"},
		{ID: "shop", Title: "Shop", URL: "/shop"},
	}
	data := PageData{
		SiteName:    "Hanko <Store>",
		Title:       "Seals",
		Summary:     "All seals",
		Nav:         nav.Render(sections, nav.ActiveID("shop")),
		NavOptions:  NavOptions{Label: "Main"},
		Breadcrumbs: nav.Breadcrumbs(sections, "/shop/seals"),
		Body:        template.HTML("<p>Pick a seal.</p>"),
	}

	var buf bytes.Buffer
	require.NoError(t, Page(data).Render(context.Background(), &buf))

	doc := parseHTML(t, buf.String())
	require.Equal(t, "en", doc.Find("html").AttrOr("lang", ""))
	require.Equal(t, "Seals | Hanko <Store>", doc.Find("title").Text())
	require.Equal(t, "All seals", doc.Find(`meta[name="description"]`).AttrOr("content", ""))

	header := doc.Find(`header nav[aria-label="Main"]`)
	require.Equal(t, 1, header.Length())
	require.Equal(t, "Shop", header.Find("li.selected a").Text())

	crumbs := doc.Find(`nav[aria-label="Breadcrumb"] li`)
	require.Equal(t, 3, crumbs.Length())
	require.Equal(t, "Seals", crumbs.Last().Find(`span[aria-current="page"]`).Text())
	require.Equal(t, "/shop", crumbs.Eq(1).Find("a").AttrOr("href", ""))

	require.Equal(t, "Pick a seal.", doc.Find("main p").Text())
}

func TestPageWithoutSections(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Page(PageData{SiteName: "Shop", Lang: "ja", Breadcrumbs: nav.Breadcrumbs(nil, "/")}).Render(context.Background(), &buf)
	require.NoError(t, err)

	doc := parseHTML(t, buf.String())
	require.Equal(t, "ja", doc.Find("html").AttrOr("lang", ""))
	require.Equal(t, "Shop", doc.Find("title").Text())
	require.Equal(t, 0, doc.Find("header nav li").Length())
	require.Equal(t, 0, doc.Find(`nav[aria-label="Breadcrumb"]`).Length())
	require.Equal(t, 0, doc.Find("h1").Length())
}
