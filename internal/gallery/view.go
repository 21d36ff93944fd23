package gallery

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/lehigh-university-libraries/scangallery/internal/models"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	// data: URLs are rejected by html/template's URL filter, and every
	// source in the list was produced by one of our own acquisition paths.
	"imageURL": func(src models.ImageSource) template.URL {
		return template.URL(src)
	},
}).ParseFS(templatesFS, "templates/index.html"))

// MenuItem is one navigation action shown in the header
type MenuItem struct {
	Key   string
	Label string
}

// DefaultSelectedKey is the menu item highlighted on first render
const DefaultSelectedKey = "2"

type pageData struct {
	Menu        []MenuItem
	SelectedKey string
	Images      []models.ImageSource
}

// Render writes the gallery page. The clear control is only present when the
// list is non-empty; each image uses its list index as key and alt text.
func (g *Gallery) Render(w io.Writer, menu []MenuItem) error {
	data := pageData{
		Menu:        menu,
		SelectedKey: DefaultSelectedKey,
		Images:      g.Images(),
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render gallery: %w", err)
	}
	return nil
}
