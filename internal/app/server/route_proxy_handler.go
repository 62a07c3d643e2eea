package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"roost/internal/api/dto"
	"roost/internal/domain"
	"roost/internal/service"

	"github.com/charmbracelet/log"
)

func (s *Server) addProxies(w http.ResponseWriter, r *http.Request) {
	var req dto.ProxyListRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	inserted, err := s.pool.AddProxies(r.Context(), req.Proxies)
	switch {
	case errors.Is(err, service.ErrNoValidProxies):
		writeStatus(w, http.StatusBadRequest, "Bad request")
		return
	case err != nil:
		log.Error("Adding proxies failed", "error", err)
		writeStatus(w, http.StatusInternalServerError, "Unknown error")
		return
	}

	writeStatus(w, http.StatusOK, fmt.Sprintf("Inserted %d proxies", inserted))
}

func (s *Server) removeProxies(w http.ResponseWriter, r *http.Request) {
	var req dto.ProxyListRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	removed, err := s.pool.RemoveProxies(r.Context(), req.Proxies)
	switch {
	case errors.Is(err, service.ErrNoValidProxies):
		writeStatus(w, http.StatusBadRequest, "Bad request")
		return
	case err != nil:
		log.Error("Removing proxies failed", "error", err)
		writeStatus(w, http.StatusInternalServerError, "Unknown error")
		return
	}

	writeStatus(w, http.StatusOK, fmt.Sprintf("Removed %d proxies", removed))
}

// getProxies accepts its parameters from the query string or a JSON body.
func (s *Server) getProxies(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseGetProxies(w, r)
	if !ok {
		return
	}

	proxies, err := s.pool.GetProxies(r.Context(), req.Website, req.Amount, req.MinRating)
	if err != nil {
		log.Error("Proxy query failed", "website", req.Website, "error", err)
		writeStatus(w, http.StatusInternalServerError, "Unknown error")
		return
	}

	writeJSON(w, http.StatusOK, toEndpoints(proxies))
}

func (s *Server) parseGetProxies(w http.ResponseWriter, r *http.Request) (dto.GetProxiesRequest, bool) {
	var req dto.GetProxiesRequest

	query := r.URL.Query()
	if !query.Has("website") {
		return req, s.decodeJSON(w, r, &req)
	}

	req.Website = query.Get("website")

	if raw := query.Get("amount"); raw != "" {
		amount, err := strconv.Atoi(raw)
		if err != nil {
			writeStatus(w, http.StatusBadRequest, "Bad request")
			return req, false
		}
		req.Amount = amount
	}

	if raw := query.Get("min_rating"); raw != "" {
		minRating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeStatus(w, http.StatusBadRequest, "Bad request")
			return req, false
		}
		req.MinRating = &minRating
	}

	return req, s.validate(w, &req)
}

func (s *Server) proxyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.pool.Stats(r.Context())
	if err != nil {
		log.Error("Reading pool stats failed", "error", err)
		writeStatus(w, http.StatusInternalServerError, "Unknown error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func toEndpoints(proxies []domain.Proxy) []dto.ProxyEndpoint {
	endpoints := make([]dto.ProxyEndpoint, len(proxies))
	for i, proxy := range proxies {
		endpoints[i] = dto.ProxyEndpoint{
			Schema:      proxy.Schema,
			Address:     proxy.Address,
			Port:        proxy.Port,
			Rating:      proxy.Rating,
			Fails:       proxy.Fails,
			Blacklisted: proxy.Blacklisted,
			Country:     proxy.Country,
		}
	}
	return endpoints
}
