package server

import (
	"errors"
	"net/http"

	"roost/internal/api/dto"
	"roost/internal/database"
	"roost/internal/domain"

	"github.com/charmbracelet/log"
)

func (s *Server) addManager(w http.ResponseWriter, r *http.Request) {
	var req dto.ManagerAddRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	token, err := s.managers.Create(r.Context(), domain.ParseManagerState(*req.State))
	if err != nil {
		log.Error("Creating manager failed", "error", err)
		writeStatus(w, http.StatusInternalServerError, "Unknown error")
		return
	}

	log.Info("Manager created", "state", domain.ParseManagerState(*req.State))
	writeJSON(w, http.StatusOK, dto.ManagerTokenResponse{Token: token})
}

func (s *Server) modifyManager(w http.ResponseWriter, r *http.Request) {
	var req dto.ManagerModifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	state := domain.ParseManagerState(*req.State)
	err := s.managers.UpdateState(r.Context(), req.Token, state)
	switch {
	case errors.Is(err, database.ErrTokenNotFound), errors.Is(err, database.ErrInvalidToken):
		writeStatus(w, http.StatusBadRequest, "Bad request")
		return
	case err != nil:
		log.Error("Modifying manager failed", "error", err)
		writeStatus(w, http.StatusInternalServerError, "Unknown error")
		return
	}

	s.resolver.Forget(r.Context(), req.Token)
	log.Info("Manager modified", "state", state)
	writeStatus(w, http.StatusOK, "Success")
}
