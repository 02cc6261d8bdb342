package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"QueueFM/logger"
	"QueueFM/service"

	"github.com/gorilla/mux"
)

// PlaylistHandler serves the playlist REST API.
type PlaylistHandler struct {
	playlist *service.PlaylistService
}

// NewPlaylistHandler creates a new PlaylistHandler.
func NewPlaylistHandler(playlist *service.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{playlist: playlist}
}

// RegisterRoutes mounts the playlist endpoints on the given router, normally a
// subrouter under /api/playlist.
func (h *PlaylistHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.GetAllSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/", h.GetAllSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/unplayed", h.GetUnplayedSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/current", h.GetCurrentSongHandler).Methods(http.MethodGet)
	router.HandleFunc("/count", h.GetUnplayedCountHandler).Methods(http.MethodGet)
	router.HandleFunc("/{songId}/played", h.MarkAsPlayedHandler).Methods(http.MethodPost)
	router.HandleFunc("/{songId}", h.RemoveSongHandler).Methods(http.MethodDelete)
}

// GetAllSongsHandler returns all of today's songs ordered by play order.
func (h *PlaylistHandler) GetAllSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.playlist.GetAllSongs(r.Context())
	if err != nil {
		logger.Error("failed to get all songs", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve songs")
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// GetUnplayedSongsHandler returns today's unplayed songs.
func (h *PlaylistHandler) GetUnplayedSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.playlist.GetUnplayedSongs(r.Context())
	if err != nil {
		logger.Error("failed to get unplayed songs", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve unplayed songs")
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// GetCurrentSongHandler returns the first unplayed song, 404 when none remain.
func (h *PlaylistHandler) GetCurrentSongHandler(w http.ResponseWriter, r *http.Request) {
	song, err := h.playlist.GetCurrentSong(r.Context())
	if err != nil {
		logger.Error("failed to get current song", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve current song")
		return
	}
	if song == nil {
		writeError(w, http.StatusNotFound, "No unplayed songs found")
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// GetUnplayedCountHandler returns the unplayed count.
func (h *PlaylistHandler) GetUnplayedCountHandler(w http.ResponseWriter, r *http.Request) {
	count, err := h.playlist.GetUnplayedCount(r.Context())
	if err != nil {
		logger.Error("failed to count unplayed songs", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to count unplayed songs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkAsPlayedHandler marks a song as played, 404 on unknown ids.
func (h *PlaylistHandler) MarkAsPlayedHandler(w http.ResponseWriter, r *http.Request) {
	songID, ok := parseSongID(w, r)
	if !ok {
		return
	}

	song, err := h.playlist.MarkAsPlayed(r.Context(), songID)
	if err != nil {
		logger.Error("failed to mark song as played",
			logger.Int64("songId", songID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to mark song as played")
		return
	}
	if song == nil {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// RemoveSongHandler deletes a song, 204 on success and 404 on unknown ids.
func (h *PlaylistHandler) RemoveSongHandler(w http.ResponseWriter, r *http.Request) {
	songID, ok := parseSongID(w, r)
	if !ok {
		return
	}

	deleted, err := h.playlist.RemoveSong(r.Context(), songID)
	if err != nil {
		logger.Error("failed to delete song",
			logger.Int64("songId", songID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete song")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseSongID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := mux.Vars(r)["songId"]
	songID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid song id")
		return 0, false
	}
	return songID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
