package handlers

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"clarisync/internal/transform"
)

// Existing lists the stored call ids
func (h *Handler) Existing(w http.ResponseWriter, r *http.Request) {
	existing := h.sync.Reconciliation().ListExistingCallIDs(r.Context())
	ids := make([]string, 0, len(existing))
	for id := range existing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(ids), "call_ids": ids})
}

// Recent lists the call ids the remote source reports for ?days=N
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	days, err := h.intParam(r, "days", h.daysBack, "min=1,max=365")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
		return
	}
	ids := h.source.ListRecentCallIDs(r.Context(), days)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"days": days, "count": len(ids), "call_ids": ids})
}

// fetch loads the raw payload for the {id} in the route, writing a 404 when
// the source has nothing for it
func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) (string, map[string]any, bool) {
	callID := mux.Vars(r)["id"]
	raw, ok := h.source.FetchCallDetails(r.Context(), callID)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no call data returned for "+callID)
		return callID, nil, false
	}
	return callID, raw, true
}

// RawCall returns the payload as received
func (h *Handler) RawCall(w http.ResponseWriter, r *http.Request) {
	if _, raw, ok := h.fetch(w, r); ok {
		h.writeJSON(w, http.StatusOK, raw)
	}
}

// TransformedCall returns the rows an import would write, without writing them
func (h *Handler) TransformedCall(w http.ResponseWriter, r *http.Request) {
	callID, raw, ok := h.fetch(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"call":         h.transformer.TransformCall(callID, raw),
		"participants": h.transformer.ExtractParticipants(callID, raw),
	})
}

// Conversation renders the transcript as plain text
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	callID, raw, ok := h.fetch(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(transform.RenderConversation(callID, raw, h.names)))
}

// StoredCalls returns the most recently written rows, ?limit=N (default 20)
func (h *Handler) StoredCalls(w http.ResponseWriter, r *http.Request) {
	limit, err := h.intParam(r, "limit", 20, "min=1,max=100")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	calls, err := h.store.RecentCalls(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list calls")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(calls), "calls": calls})
}

// StoredParticipants returns the participant rows stored for {id}
func (h *Handler) StoredParticipants(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["id"]
	rows, err := h.store.ListParticipants(r.Context(), callID)
	if err != nil {
		h.logger.Error().Err(err).Str("call_id", callID).Msg("failed to list participants")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"call_id": callID, "count": len(rows), "participants": rows})
}
