package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/ayusman/podium/internal/gesture"
	"github.com/ayusman/podium/internal/plugin"
)

// BindingsHandler serves GET /api/bindings: which plugin action each gesture
// triggers and whether that plugin is installed.
type BindingsHandler struct {
	bindings map[gesture.Label]plugin.Binding
	manager  *plugin.Manager
}

// NewBindingsHandler creates a BindingsHandler. manager may be nil.
func NewBindingsHandler(bindings map[gesture.Label]plugin.Binding, manager *plugin.Manager) *BindingsHandler {
	return &BindingsHandler{bindings: bindings, manager: manager}
}

// bindingResponse represents a binding in API responses.
type bindingResponse struct {
	Gesture   string          `json:"gesture"`
	Plugin    string          `json:"plugin"`
	Action    string          `json:"action"`
	Params    json.RawMessage `json:"params,omitempty"`
	Installed bool            `json:"installed"`
}

// listBindingsResponse represents the response for listing bindings.
type listBindingsResponse struct {
	Bindings []bindingResponse `json:"bindings"`
}

// ServeHTTP lists the bindings sorted by gesture.
func (h *BindingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	response := listBindingsResponse{Bindings: make([]bindingResponse, 0, len(h.bindings))}
	for g, b := range h.bindings {
		installed := false
		if h.manager != nil {
			_, err := h.manager.Get(b.Plugin)
			installed = err == nil
		}
		response.Bindings = append(response.Bindings, bindingResponse{
			Gesture:   string(g),
			Plugin:    b.Plugin,
			Action:    b.Action,
			Params:    b.Params,
			Installed: installed,
		})
	}
	sort.Slice(response.Bindings, func(i, j int) bool {
		return response.Bindings[i].Gesture < response.Bindings[j].Gesture
	})

	writeJSON(w, http.StatusOK, response)
}
