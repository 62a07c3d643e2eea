package server

import (
	"errors"
	"net/http"

	"roost/internal/api/dto"
	"roost/internal/auth"
	"roost/internal/service"

	"github.com/charmbracelet/log"
)

func (s *Server) addRateLimited(w http.ResponseWriter, r *http.Request) {
	var req dto.RateLimitRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	entries := make([]service.RateLimitEntry, len(req.Proxies))
	for i, proxy := range req.Proxies {
		entries[i] = service.RateLimitEntry{Address: proxy.Address, For: proxy.RateLimitedFor}
	}

	_, err := s.pool.AddRateLimit(r.Context(), auth.StateFromContext(r.Context()), req.Website, entries)
	switch {
	case errors.Is(err, service.ErrAdminRequired):
		writeStatus(w, http.StatusUnauthorized, msgAdminRequired)
		return
	case errors.Is(err, service.ErrNoValidEntries):
		writeStatus(w, http.StatusBadRequest, "Bad request")
		return
	case err != nil:
		log.Error("Recording rate limits failed", "website", req.Website, "error", err)
		writeStatus(w, http.StatusInternalServerError, "Unknown error")
		return
	}

	writeStatus(w, http.StatusOK, "Success")
}
