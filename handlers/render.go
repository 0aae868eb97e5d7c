// engforum/handlers/render.go

package handlers

import (
	"bytes"
	"engforum/config"
	"engforum/models"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"time"
)

var (
	templates *template.Template
)

// LoadTemplates parses all HTML files from the templates directory.
func LoadTemplates() error {
	funcMap := template.FuncMap{
		"formatTime": func(t time.Time) string { return t.Format("Jan 02, 2006 15:04") },
		"truncate": func(max int, s string) string {
			runes := []rune(s)
			if len(runes) > max {
				return string(runes[:max]) + "..."
			}
			return s
		},
		"categoryName": func(id string) string {
			if c, ok := models.CategoryByID(id); ok {
				return c.Name
			}
			return id
		},
	}
	templateFiles, err := filepath.Glob("templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to find templates: %w", err)
	}
	templates = template.New("").Funcs(funcMap)
	templates = template.Must(templates.ParseFiles(templateFiles...))
	return nil
}

// render executes the given content template inside the site layout.
// Flash messages queued on the session are consumed here, so they show
// exactly once.
func render(w http.ResponseWriter, r *http.Request, app App, contentTmpl string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}

	data["AppVersion"] = config.AppVersion
	data["Categories"] = models.Categories
	if csrfToken, ok := r.Context().Value(CSRFTokenKey).(string); ok {
		data["csrfToken"] = csrfToken
	}
	if _, ok := data["CurrentUser"]; !ok {
		if user := currentUser(r, app); user != nil {
			data["CurrentUser"] = user
		}
	}

	success, errs := app.Sessions().PopFlashes(w, r)
	data["SuccessFlashes"] = success
	data["ErrorFlashes"] = errs

	contentBuf := new(bytes.Buffer)
	err := templates.ExecuteTemplate(contentBuf, contentTmpl, data)
	if err != nil {
		log.Printf("Error rendering content template %s: %v", contentTmpl, err)
		http.Error(w, "Failed to render page content", http.StatusInternalServerError)
		return
	}
	data["Content"] = template.HTML(contentBuf.String())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = templates.ExecuteTemplate(w, "layout.html", data)
	if err != nil {
		log.Printf("Error rendering layout template: %v", err)
	}
}
