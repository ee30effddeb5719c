package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	tmpl *template.Template
}

func mustParsePages() *pages {
	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"csvDataURL": csvDataURL,
	}).ParseFS(templateFS, "templates/*.html"))
	return &pages{tmpl: tmpl}
}

// csvDataURL embeds a CSV body in a link so results can be downloaded
// without storing them.
func csvDataURL(body []byte) template.URL {
	return template.URL("data:text/csv;base64," + base64.StdEncoding.EncodeToString(body)) //nolint:gosec
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		zap.L().Error("web: render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
