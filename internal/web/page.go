package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/jmylchreest/geminichat/internal/chat"
	"github.com/jmylchreest/geminichat/internal/logger"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

type pageData struct {
	Model   string
	State   chat.State
	Prompts []chat.QuickPrompt
	Note    string

	// Response is the sanitized text. It is already HTML-escaped so it is
	// emitted without a second escape.
	Response template.HTML
}

func (s *Server) renderPage(w http.ResponseWriter, status int, note string) {
	state := s.session.Snapshot()
	data := pageData{
		Model:    s.session.Provider().Model(),
		State:    state,
		Prompts:  chat.QuickPrompts(),
		Note:     note,
		Response: template.HTML(state.Response),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger.Error("rendering page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'; object-src 'none'; base-uri 'none'")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
