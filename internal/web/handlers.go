package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmylchreest/geminichat/internal/chat"
	"github.com/jmylchreest/geminichat/internal/logger"
)

const (
	busyNote     = "A request is already in progress. Try again once it finishes."
	tooLargeNote = "The prompt is too large."
)

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, http.StatusOK, "")
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		if isTooLarge(err) {
			s.renderPage(w, http.StatusRequestEntityTooLarge, tooLargeNote)
			return
		}
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	// A quick-prompt card only fills the prompt box.
	if quick := r.PostFormValue("quick"); quick != "" {
		s.session.SetPrompt(quick)
		s.renderPage(w, http.StatusOK, "")
		return
	}

	_, err := s.session.Send(r.Context(), r.PostFormValue("prompt"))
	switch {
	case err == nil, errors.Is(err, chat.ErrEmptyPrompt):
		s.renderPage(w, http.StatusOK, "")
	case errors.Is(err, chat.ErrBusy):
		s.renderPage(w, http.StatusTooManyRequests, busyNote)
	default:
		s.renderPage(w, http.StatusBadGateway, "")
	}
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	Cached   bool   `json:"cached"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isTooLarge(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, chatResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, chatResponse{Error: "invalid JSON"})
		return
	}

	res, err := s.session.Ask(r.Context(), req.Prompt)
	switch {
	case errors.Is(err, chat.ErrEmptyPrompt):
		writeJSON(w, http.StatusBadRequest, chatResponse{Error: "prompt is required"})
	case errors.Is(err, chat.ErrBusy):
		writeJSON(w, http.StatusTooManyRequests, chatResponse{Error: "request already in progress"})
	case err != nil:
		writeJSON(w, http.StatusBadGateway, chatResponse{
			Response: res.Response,
			Model:    res.Model,
			Error:    "upstream request failed",
		})
	default:
		writeJSON(w, http.StatusOK, chatResponse{
			Response: res.Response,
			Model:    res.Model,
			Cached:   res.Cached,
		})
	}
}

func (s *Server) handlePrompts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, chat.QuickPrompts())
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("writing JSON response", "error", err)
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
