package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/preview"
	"github.com/killallgit/webbuilder/pkg/sandbox"
	"github.com/killallgit/webbuilder/pkg/workspace"
)

const maxBodyBytes = 1 << 20

type pageData struct {
	Title    string
	State    stateView
	Document preview.Document
}

// handleIndex serves GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:    s.opts.Title,
		State:    newStateView(s.ws.Snapshot()),
		Document: s.ws.Bridge().Current(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html.tmpl", data); err != nil {
		s.log.Error("failed to render page", "error", err)
	}
}

// handlePreview serves GET /preview, the current sandbox document.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	doc := s.ws.Bridge().Current()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "sandbox allow-scripts")
	w.Header().Set("X-Document-Revision", formatRevision(doc.Revision))
	io.WriteString(w, doc.HTML)
}

// handleHealth serves GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleState serves GET /api/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(s.ws.Snapshot()))
}

type modelsResponse struct {
	Models    chat.Catalogue `json:"models"`
	Selected  string         `json:"selected"`
	Available []string       `json:"available,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// handleModels serves GET /api/models
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	state := s.ws.Snapshot()
	resp := modelsResponse{Models: state.Models, Selected: state.SelectedModel}
	if s.opts.Lister != nil {
		remote, err := s.opts.Lister.ListModels(r.Context())
		if err != nil {
			resp.Error = err.Error()
		}
		for _, m := range remote {
			resp.Available = append(resp.Available, m.ID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type submitRequest struct {
	Content string `json:"content"`
}

// handleSubmit serves POST /api/messages
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, err := s.ws.Submit(s.ctx, req.Content)
	if errors.Is(err, workspace.ErrEmptyInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"session": session.ID})
}

// handleCancel serves POST /api/cancel
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.ws.Cancel()})
}

type selectionModeRequest struct {
	// IsSelecting is optional; when absent the mode is toggled.
	IsSelecting *bool `json:"isSelecting"`
}

// handleSelectionMode serves POST /api/selection-mode
func (s *Server) handleSelectionMode(w http.ResponseWriter, r *http.Request) {
	var req selectionModeRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var err error
	if req.IsSelecting == nil {
		_, err = s.ws.ToggleSelecting()
	} else {
		err = s.ws.SetSelecting(*req.IsSelecting)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Bridge().Selection())
}

type selectModelRequest struct {
	ID string `json:"id"`
}

// handleSelectModel serves POST /api/model
func (s *Server) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	var req selectModelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.ws.SelectModel(req.ID); err != nil {
		if errors.Is(err, chat.ErrUnknownModel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": req.ID})
}

// handleSandbox serves POST /api/sandbox. The body is a message the page
// received from the preview frame, relayed as is.
func (s *Server) handleSandbox(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.ws.Bridge().HandleMessage(raw)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, sandbox.ErrUnexpectedMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, preview.ErrStaleSelection):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
