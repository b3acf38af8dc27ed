// Package render turns admin views into HTML with the embedded templates.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/ZJUSCT/backoffice/internal/admin"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

//go:embed all:templates
var templateFS embed.FS

// Base layouts. Pages define "content" and may define "title".
const (
	Layout     = "layout.html"
	AjaxLayout = "ajax_layout.html"
)

const partials = "templates/_partials.html"

var messages = map[string]string{
	"flash_create_success":       "The item has been created successfully.",
	"flash_create_error":         "An error has occurred during the creation of the item.",
	"flash_edit_success":         "The item has been updated successfully.",
	"flash_edit_error":           "An error has occurred during the update of the item.",
	"flash_delete_success":       "The item has been deleted successfully.",
	"flash_batch_empty":          "Action aborted. No items were selected.",
	"flash_batch_delete_success": "The selected items have been deleted successfully.",
	"flash_batch_success":        "The batch action has been applied to the selected items.",
}

// Message is the text shown for a flash key.
func Message(key string) string {
	if m, ok := messages[key]; ok {
		return m
	}
	return key
}

var funcs = template.FuncMap{
	"field":   admin.FieldValue,
	"message": Message,
	"join":    strings.Join,
	"pages": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	},
	"first": func(v []string) string {
		if len(v) == 0 {
			return ""
		}
		return v[0]
	},
}

// Renderer is a gin HTMLRender over every page and layout combination.
type Renderer struct {
	sets map[string]*template.Template
}

var _ render.HTMLRender = (*Renderer)(nil)

// New parses the embedded templates.
func New() (*Renderer, error) {
	var pages []string
	err := fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := strings.TrimPrefix(p, "templates/")
		if name == Layout || name == AjaxLayout || strings.HasPrefix(path.Base(name), "_") {
			return nil
		}
		pages = append(pages, name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r := &Renderer{sets: make(map[string]*template.Template)}
	for _, layout := range []string{Layout, AjaxLayout} {
		for _, page := range pages {
			t, err := template.New(layout).Funcs(funcs).ParseFS(templateFS,
				"templates/"+layout, partials, "templates/"+page)
			if err != nil {
				return nil, fmt.Errorf("parse %s with %s: %w", page, layout, err)
			}
			r.sets[layout+"|"+page] = t
		}
	}
	return r, nil
}

// Has reports whether page exists.
func (r *Renderer) Has(page string) bool {
	_, ok := r.sets[Layout+"|"+page]
	return ok
}

// HasLayout reports whether name is one of the embedded layouts.
func HasLayout(name string) bool {
	return name == Layout || name == AjaxLayout
}

// Instance renders page inside the layout named by the "base_template" entry of data.
func (r *Renderer) Instance(page string, data any) render.Render {
	layout := Layout
	if m := asMap(data); m != nil {
		if base, ok := m["base_template"].(string); ok && base != "" {
			layout = base
		}
	}
	t, ok := r.sets[layout+"|"+page]
	if !ok {
		return missing{page: page, layout: layout}
	}
	return render.HTML{Template: t, Name: layout, Data: data}
}

func asMap(data any) map[string]any {
	switch m := data.(type) {
	case gin.H:
		return m
	case map[string]any:
		return m
	}
	return nil
}

type missing struct {
	page, layout string
}

func (m missing) Render(http.ResponseWriter) error {
	return fmt.Errorf("no template %s with layout %s", m.page, m.layout)
}

func (m missing) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}
