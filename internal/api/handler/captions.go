package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/callclock/internal/api/apierr"
	"github.com/mcoot/callclock/internal/api/request"
	"github.com/mcoot/callclock/internal/api/response"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/web/sse"
)

// CaptionHandler handles caption endpoints
type CaptionHandler struct {
	captions    *caption.Service
	broadcaster *sse.Broadcaster
}

// NewCaptionHandler creates a new caption handler. broadcaster may be nil.
func NewCaptionHandler(captions *caption.Service, broadcaster *sse.Broadcaster) *CaptionHandler {
	return &CaptionHandler{
		captions:    captions,
		broadcaster: broadcaster,
	}
}

// List handles GET /api/v1/captions
func (h *CaptionHandler) List(w http.ResponseWriter, r *http.Request) {
	pages, err := h.captions.Pages(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = string(p)
	}
	response.JSON(w, http.StatusOK, map[string][]string{"pages": names})
}

// Get handles GET /api/v1/captions/{page}
func (h *CaptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	page := model.Page(mux.Vars(r)["page"])

	set, err := h.captions.Get(r.Context(), page)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.CaptionsFromModel(set))
}

// Put handles PUT /api/v1/captions/{page}.
// Viewers of the page are told to refresh so new mounts pick up the list.
func (h *CaptionHandler) Put(w http.ResponseWriter, r *http.Request) {
	page := model.Page(mux.Vars(r)["page"])

	var req request.UpdateCaptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
		return
	}

	set, err := h.captions.Save(r.Context(), page, req.Captions)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastRefresh(page, "captions updated")
	}
	response.JSON(w, http.StatusOK, response.CaptionsFromModel(set))
}

// Delete handles DELETE /api/v1/captions/{page}
func (h *CaptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	page := model.Page(mux.Vars(r)["page"])

	if err := h.captions.Delete(r.Context(), page); err != nil {
		apierr.WriteError(w, err)
		return
	}
	if h.broadcaster != nil {
		h.broadcaster.BroadcastRefresh(page, "captions removed")
	}
	response.NoContent(w)
}
