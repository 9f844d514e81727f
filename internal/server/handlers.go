package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

type queryRequest struct {
	Question string `json:"question"`
}

type buildRequest struct {
	Mode string `json:"mode"`
}

// noAnswerResponse is returned with 200 when retrieval finds nothing that
// clears the relevance threshold. Instead of guessing, the API points the
// caller at what the knowledge base can answer.
type noAnswerResponse struct {
	AnswerType         string   `json:"answer_type"`
	Answer             string   `json:"answer"`
	Overview           string   `json:"overview,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	queryID := uuid.New().String()[:8]
	s.logger.Debug("query request", zap.String("query_id", queryID), zap.String("question", req.Question))

	ans, err := s.system.AnswerQuestion(r.Context(), req.Question)
	if err != nil {
		s.respondQueryError(w, queryID, err)
		return
	}
	s.logger.Info("query answered",
		zap.String("query_id", queryID),
		zap.String("answer_type", string(ans.AnswerType)),
		zap.Int("citations", len(ans.Citations)))
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) respondQueryError(w http.ResponseWriter, queryID string, err error) {
	switch {
	case errors.Is(err, models.ErrEmptyQuestion):
		s.respondError(w, http.StatusBadRequest, "question must not be empty")
	case errors.Is(err, models.ErrNoRelevantResults):
		s.logger.Info("query found nothing relevant", zap.String("query_id", queryID))
		resp := noAnswerResponse{
			AnswerType: "no_answer",
			Answer:     "The knowledge base does not contain relevant information for this question.",
		}
		if sum, serr := s.system.KnowledgeSummary(); serr == nil && sum != nil {
			resp.Overview = sum.Overview
			resp.SuggestedQuestions = sum.SuggestedQuestions
		}
		s.respondJSON(w, http.StatusOK, resp)
	case errors.Is(err, models.ErrTimeout):
		s.logger.Warn("query timed out", zap.String("query_id", queryID), zap.Error(err))
		s.respondError(w, http.StatusGatewayTimeout, "query timed out")
	case errors.Is(err, models.ErrEmbeddingUnavailable),
		errors.Is(err, models.ErrRetrievalUnavailable),
		errors.Is(err, models.ErrGenerationUnavailable):
		s.logger.Error("query backend unavailable", zap.String("query_id", queryID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("query failed", zap.String("query_id", queryID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleIndexBuild(w http.ResponseWriter, r *http.Request) {
	mode := models.IndexIncremental
	if r.Body != nil && r.ContentLength != 0 {
		var req buildRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		switch req.Mode {
		case "", string(models.IndexIncremental):
		case string(models.IndexRebuild):
			mode = models.IndexRebuild
		default:
			s.respondError(w, http.StatusBadRequest, "mode must be \"incremental\" or \"rebuild\"")
			return
		}
	}
	s.logger.Info("index build request", zap.String("mode", string(mode)))
	report, err := s.system.BuildIndex(r.Context(), mode)
	if err != nil {
		s.logger.Error("index build failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.system.Stats())
}

func (s *Server) handleKnowledgeSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.system.KnowledgeSummary()
	if err != nil {
		s.logger.Error("knowledge summary failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, sum)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
