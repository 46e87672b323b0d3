package api

import (
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/isaac-evs/side-b/internal/api/respond"
	"github.com/isaac-evs/side-b/internal/api/validate"
)

type MusicHandler struct {
	deps Deps
}

func NewMusicHandler(d Deps) *MusicHandler { return &MusicHandler{deps: d} }

type textRequest struct {
	Text string `json:"text"`
}

// Classify POST /api/moods/classify
func (h *MusicHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var in textRequest
	if !decode(w, r, &in) {
		return
	}
	if err := validate.ClassifyText(in.Text); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"mood": h.deps.Classifier.Classify(r.Context(), in.Text)})
}

// Recommend POST /api/recommendations
func (h *MusicHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var in textRequest
	if !decode(w, r, &in) {
		return
	}
	if err := validate.ClassifyText(in.Text); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, h.deps.Recommender.Recommend(r.Context(), in.Text))
}

// GetSong GET /api/songs/{songId}
func (h *MusicHandler) GetSong(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Catalog.Get(r.Context(), mux.Vars(r)["songId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, s)
}

// TopSongs GET /api/songs/top?perMood=N
func (h *MusicHandler) TopSongs(w http.ResponseWriter, r *http.Request) {
	n, ok := intParam(r, "perMood", defaultTopSongs, 50)
	if !ok {
		respond.WriteBadRequest(w, "perMood must be a positive integer")
		return
	}
	out, err := h.deps.Charts.TopSongsByMood(r.Context(), n)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
