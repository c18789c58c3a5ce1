package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

func loadTemplates() *template.Template {
	funcs := template.FuncMap{
		"deref": func(p *int) int {
			if p == nil {
				return 0
			}
			return *p
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))
}

// render executes a page template with the per-request values every page needs.
func (h *Handler) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	tok := sessionFrom(c)
	data["csrfToken"] = h.csrf.Issue(tok.CSRFSecret)
	data["signedIn"] = !tok.Anonymous()
	data["firstname"] = tok.FirstName
	c.HTML(status, page, data)
}

// renderFormError re-presents a form with the error banner.
func (h *Handler) renderFormError(c *gin.Context, status int, page, message string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["error"] = true
	data["message"] = message
	h.render(c, status, page, data)
}

func (h *Handler) renderError(c *gin.Context, status int, detail string) {
	h.render(c, status, "error.html", gin.H{
		"title":  http.StatusText(status),
		"detail": detail,
	})
}
