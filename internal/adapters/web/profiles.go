package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledger-gateway/internal/profile"
)

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.ListProfiles(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success  bool                     `json:"success"`
		Profiles []profile.CompanyProfile `json:"profiles"`
	}{Success: true, Profiles: profiles})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProfile(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool                    `json:"success"`
		Profile *profile.CompanyProfile `json:"profile"`
	}{Success: true, Profile: p})
}

func (h *Handler) upsertProfile(w http.ResponseWriter, r *http.Request) {
	var p profile.CompanyProfile
	if !decodeJSON(w, r, &p) {
		return
	}
	p.CompanyRef = chi.URLParam(r, "ref")
	stored, err := h.svc.UpsertProfile(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool                    `json:"success"`
		Profile *profile.CompanyProfile `json:"profile"`
	}{Success: true, Profile: stored})
}

func (h *Handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProfile(r.Context(), chi.URLParam(r, "ref")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}
