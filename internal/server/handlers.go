package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/nagomi-art/nagomi/internal/models"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.logger.Debug("session created", zap.String("session_id", sess.ID))
	s.respondJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Mood == "" {
		s.respondError(w, http.StatusBadRequest, "mood is required")
		return
	}

	sess, ok := s.sessions.Get(req.SessionID)
	if req.SessionID != "" && !ok {
		s.respondError(w, http.StatusNotFound, "unknown session")
		return
	}
	if sess == nil {
		sess = s.sessions.Create()
	}

	s.logger.Debug("recommend request",
		zap.String("mood", req.Mood),
		zap.String("session_id", sess.ID),
		zap.Int("excluded", sess.Exclusions.Len()))

	rec, err := s.engine.Recommend(r.Context(), req.Mood, sess.Exclusions)
	if err != nil {
		s.logger.Error("recommendation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		s.respondJSON(w, http.StatusOK, models.RecommendResponse{SessionID: sess.ID})
		return
	}
	sess.Exclusions.Add(rec.Path)
	s.respondJSON(w, http.StatusOK, models.RecommendResponse{
		Recommendation: rec,
		SessionID:      sess.ID,
	})
}

func (s *Server) handleArtworkSearch(w http.ResponseWriter, r *http.Request) {
	if s.metadata == nil {
		s.respondError(w, http.StatusNotImplemented, "metadata search not enabled")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	hits, err := s.metadata.Search(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("artwork search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query": query,
		"hits":  hits,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.collection.Count(r.Context())
	if err != nil {
		s.logger.Error("status: count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"artworks": count,
		"sessions": s.sessions.Len(),
	}
	if s.metadata != nil {
		if n, err := s.metadata.Count(); err == nil {
			resp["metadata_indexed"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
