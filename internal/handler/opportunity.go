package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/engage/internal/service"
)

// Matcher is what OpportunityHandler needs from service.MatchService.
type Matcher interface {
	GetRecommendedOpportunities(ctx context.Context, userID string, limit int) (*service.Ranking, error)
	MatchOpportunities(ctx context.Context, userID string, limit int) (*service.Ranking, error)
}

// OpportunityHandler serves ranked opportunity lists.
type OpportunityHandler struct {
	matcher Matcher
	logger  *slog.Logger
}

func NewOpportunityHandler(matcher Matcher, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{matcher: matcher, logger: logger}
}

// HandleRecommendations
//
// HTTP: GET /api/me/recommendations?limit=10
func (h *OpportunityHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	h.serveRanking(w, r, h.matcher.GetRecommendedOpportunities)
}

// HandleMatches scores the newest opportunities regardless of interest area.
//
// HTTP: GET /api/me/matches?limit=20
func (h *OpportunityHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	h.serveRanking(w, r, h.matcher.MatchOpportunities)
}

func (h *OpportunityHandler) serveRanking(
	w http.ResponseWriter,
	r *http.Request,
	rank func(ctx context.Context, userID string, limit int) (*service.Ranking, error),
) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ranking, err := rank(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("ranking opportunities failed",
			slog.String("userID", id),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}
