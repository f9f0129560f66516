package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/moodjournal/game/accounts"
	"github.com/wricardo/moodjournal/game/diary"
	"github.com/wricardo/moodjournal/game/scores"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// User Handlers

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user.Public())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user.Public())
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user.Public())
}

type themeBody struct {
	DarkMode bool `json:"dark_mode"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	dark, err := s.accounts.Theme(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, themeBody{DarkMode: dark})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req themeBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.accounts.SetTheme(r.Context(), id, req.DarkMode); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, req)
}

// Diary Handlers

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	opts := diary.ListOptions{
		Order:  diary.SortOrder(query.Get("order")),
		Filter: query.Get("q"),
	}
	if opts.Order != diary.SortOldest {
		opts.Order = diary.SortNewest
	}

	entries, err := s.journal.List(r.Context(), id, opts)
	if err != nil {
		respondErr(w, err)
		return
	}
	if entries == nil {
		entries = []diary.Entry{}
	}

	if query.Get("group") != "day" {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"count":   len(entries),
			"order":   opts.Order,
			"entries": entries,
		})
		return
	}

	loc := time.UTC
	if tz := query.Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid tz: "+tz)
			return
		}
		loc = l
	}

	groups := diary.GroupByDay(entries, loc)
	if groups == nil {
		groups = []diary.DayGroup{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(entries),
		"order":  opts.Order,
		"groups": groups,
	})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req diary.NewEntry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := s.journal.Add(r.Context(), id, req)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	entry, err := s.journal.Get(r.Context(), id, mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req diary.EntryUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := s.journal.Update(r.Context(), id, mux.Vars(r)["id"], req)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	entryID := mux.Vars(r)["id"]
	if err := s.journal.Delete(r.Context(), id, entryID); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Entry " + entryID + " deleted",
	})
}

// Score Handlers

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.service.ListScores(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	if records == nil {
		records = []scores.Record{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(records),
		"best":   scores.Best(records),
		"scores": records,
	})
}

func (s *Server) handleBestScore(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	best, err := s.service.BestScore(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"best_score": best})
}

var _ Accounts = (*accounts.Service)(nil)
var _ Journal = (*diary.Service)(nil)
