package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/callclock/internal/api/apierr"
	"github.com/mcoot/callclock/internal/api/response"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/view"
)

// ViewHandler handles mounted view endpoints
type ViewHandler struct {
	views *view.Manager
}

// NewViewHandler creates a new view handler
func NewViewHandler(views *view.Manager) *ViewHandler {
	return &ViewHandler{views: views}
}

// List handles GET /api/v1/views
func (h *ViewHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := h.views.List()
	resp := response.ViewList{
		Count: len(infos),
		Views: make([]response.View, 0, len(infos)),
	}
	for _, info := range infos {
		resp.Views = append(resp.Views, response.ViewFromInfo(info))
	}
	response.JSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/views/{id}
func (h *ViewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.ViewID(mux.Vars(r)["id"])

	session, err := h.views.Get(id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.ViewFromInfo(session.Info()))
}

// Delete handles DELETE /api/v1/views/{id}; the viewer's stream stops receiving events
func (h *ViewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.ViewID(mux.Vars(r)["id"])

	if err := h.views.Unmount(id); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}
