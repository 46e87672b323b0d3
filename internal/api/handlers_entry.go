package api

import (
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/isaac-evs/side-b/internal/api/respond"
	"github.com/isaac-evs/side-b/internal/api/validate"
	"github.com/isaac-evs/side-b/internal/journal"
	"github.com/isaac-evs/side-b/internal/model"
)

type JournalHandler struct {
	deps Deps
}

func NewJournalHandler(d Deps) *JournalHandler { return &JournalHandler{deps: d} }

// CreateUser POST /api/users
func (h *JournalHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Name     string `json:"name,omitempty"`
	}
	if !decode(w, r, &in) {
		return
	}
	if err := validate.CreateUser(in.Username, in.Email, in.Name); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	out, err := h.deps.Journal.CreateUser(r.Context(), &model.User{Username: in.Username, Email: in.Email, Name: in.Name})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// GetUser GET /api/users/{userId}
func (h *JournalHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.deps.Journal.GetUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, u)
}

// CreateEntry POST /api/users/{userId}/entries
func (h *JournalHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Date  string                  `json:"date"`
		Text  string                  `json:"text"`
		Mood  string                  `json:"mood,omitempty"`
		Song  *model.SongSelection    `json:"song,omitempty"`
		Media []model.MediaAttachment `json:"media,omitempty"`
	}
	if !decode(w, r, &in) {
		return
	}
	date, err := validate.Date(in.Date, h.deps.Location)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if err := validate.EntryText(in.Text); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	for _, m := range in.Media {
		if err := validate.Media(m.FileType, m.URL); err != nil {
			respond.WriteDomainError(w, err)
			return
		}
	}

	entry, err := h.deps.Journal.CreateEntry(r.Context(), journal.CreateEntryRequest{
		UserID: mux.Vars(r)["userId"],
		Date:   date,
		Text:   in.Text,
		Mood:   in.Mood,
		Song:   in.Song,
		Media:  in.Media,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, entry)
}

// ListEntries GET /api/users/{userId}/entries?limit=N
func (h *JournalHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", defaultListLimit, maxListLimit)
	if !ok {
		respond.WriteBadRequest(w, "limit must be a positive integer")
		return
	}
	out, err := h.deps.Journal.ListEntries(r.Context(), mux.Vars(r)["userId"], limit)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// GetEntry GET /api/users/{userId}/entries/{entryId}
func (h *JournalHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	e, err := h.deps.Journal.GetEntry(r.Context(), vars["userId"], vars["entryId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, e)
}

// AttachMedia POST /api/users/{userId}/entries/{entryId}/media
func (h *JournalHandler) AttachMedia(w http.ResponseWriter, r *http.Request) {
	var in model.MediaAttachment
	if !decode(w, r, &in) {
		return
	}
	if err := validate.Media(in.FileType, in.URL); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	vars := mux.Vars(r)
	e, err := h.deps.Journal.AttachMedia(r.Context(), vars["userId"], vars["entryId"], in)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, e)
}
