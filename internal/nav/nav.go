package nav

import (
	"path"
	"strings"
)

// Section is a navigable content unit supplied by a content source.
type Section struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// Active identifies the section currently being viewed. The zero value is
// absent and matches no section, including one with an empty ID.
type Active struct {
	ID    string
	Valid bool
}

// ActiveID returns a present Active for id.
func ActiveID(id string) Active {
	return Active{ID: id, Valid: true}
}

// Matches reports whether the section carries the active identifier.
func (a Active) Matches(s Section) bool {
	return a.Valid && s.ID == a.ID
}

// Item is a rendered navigation entry.
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	IsActive bool   `json:"isActive"`
}

// List is the rendered navigation, in section order.
type List []Item

// Crumb represents a breadcrumb entry.
type Crumb struct {
	Href   string
	Label  string
	Active bool
}

// Render pairs every section with its active flag, preserving input order.
func Render(sections []Section, active Active) List {
	items := make(List, 0, len(sections))
	for _, s := range sections {
		items = append(items, Item{
			ID:       s.ID,
			Title:    s.Title,
			URL:      s.URL,
			IsActive: active.Matches(s),
		})
	}
	return items
}

// ActiveCount returns the number of items flagged active.
func (l List) ActiveCount() int {
	n := 0
	for _, it := range l {
		if it.IsActive {
			n++
		}
	}
	return n
}

// ActiveFromPath resolves the section whose URL best matches currentPath.
// The longest matching URL wins; ties go to the earliest section.
func ActiveFromPath(sections []Section, currentPath string) Active {
	if currentPath == "" {
		currentPath = "/"
	}
	best := -1
	bestLen := -1
	for i, s := range sections {
		if s.URL == "" || !isActive(s.URL, currentPath) {
			continue
		}
		// "/about" and "/about/" are the same section; the first one wins.
		if n := len(strings.TrimRight(s.URL, "/")); n > bestLen {
			best, bestLen = i, n
		}
	}
	if best < 0 {
		return Active{}
	}
	return ActiveID(sections[best].ID)
}

func isActive(itemPath, currentPath string) bool {
	itemPath = strings.TrimRight(itemPath, "/")
	if itemPath == "" {
		return currentPath == "/"
	}
	// match exact or prefix boundary: "/shop" or "/shop/..."
	if currentPath == itemPath {
		return true
	}
	return strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds breadcrumb entries from the current path.
// Rules:
// - Always start with Home
// - Segments whose href is a section URL use the section title
// - Other segments use a prettified segment label
func Breadcrumbs(sections []Section, currentPath string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	titles := make(map[string]string, len(sections))
	for _, s := range sections {
		if s.URL == "" {
			continue
		}
		key := strings.TrimRight(s.URL, "/")
		if key == "" {
			key = "/"
		}
		if _, ok := titles[key]; !ok {
			titles[key] = s.Title
		}
	}

	home := "Home"
	if t := titles["/"]; t != "" {
		home = t
	}
	crumbs := []Crumb{{Href: "/", Label: home, Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean("/" + strings.TrimLeft(currentPath, "/"))
	if clean == "/" {
		crumbs[0].Active = true
		return crumbs
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	href := ""
	for i, part := range parts {
		href = href + "/" + part
		label := titles[href]
		if label == "" {
			label = titleFromSegment(part)
		}
		crumbs = append(crumbs, Crumb{
			Href:   href,
			Label:  label,
			Active: i == len(parts)-1,
		})
	}
	return crumbs
}

func titleFromSegment(seg string) string {
	if seg == "" {
		return seg
	}
	s := strings.ReplaceAll(seg, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	r := []rune(s)
	r[0] = toUpper(r[0])
	return string(r)
}

func toUpper(r rune) rune {
	// ASCII only is sufficient for slugs here
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
