package view

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/storenav/internal/nav"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var layout = template.Must(template.New("_root").ParseFS(templatesFS, "templates/*.tmpl"))

// PageData is the view model for a full page.
type PageData struct {
	SiteName    string
	Lang        string
	Title       string
	Summary     string
	Nav         nav.List
	NavOptions  NavOptions
	Breadcrumbs []nav.Crumb
	// Body must already be sanitized.
	Body template.HTML
}

type layoutData struct {
	SiteName    string
	Lang        string
	Title       string
	Summary     string
	Nav         template.HTML
	Breadcrumbs []nav.Crumb
	Body        template.HTML
}

// Page renders the base layout with the navigation embedded in the header.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		navHTML, err := templ.ToGoHTML(ctx, NavList(data.Nav, data.NavOptions))
		if err != nil {
			return fmt.Errorf("view: render nav: %w", err)
		}
		lang := data.Lang
		if lang == "" {
			lang = "en"
		}
		vm := layoutData{
			SiteName:    data.SiteName,
			Lang:        lang,
			Title:       data.Title,
			Summary:     data.Summary,
			Nav:         navHTML,
			Breadcrumbs: data.Breadcrumbs,
			Body:        data.Body,
		}
		if err := layout.ExecuteTemplate(w, "base", vm); err != nil {
			return fmt.Errorf("view: execute layout: %w", err)
		}
		return nil
	})
}
