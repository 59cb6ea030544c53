package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// APIHolding is a holding with its amount rendered in whole units.
type APIHolding struct {
	entity.Holding
	FormattedAmount string `json:"formattedAmount"`
}

// APIPortfolioResponse определяет структуру ответа для эндпоинта портфеля.
type APIPortfolioResponse struct {
	Data struct {
		ID       string       `json:"id"`
		TakenAt  string       `json:"takenAt"`
		Holdings []APIHolding `json:"holdings"`
		TotalUSD string       `json:"totalUsd"`
		Unpriced int          `json:"unpriced"`
	} `json:"data"`
	EntryErrors   []entity.EntryError `json:"entry_errors,omitempty"`
	StatusMessage string              `json:"status_message"`
}

// PortfolioHandler serves the last snapshot taken by the session.
type PortfolioHandler struct {
	snapshots port.SnapshotSource
}

// NewPortfolioHandler создает новый экземпляр PortfolioHandler.
func NewPortfolioHandler(source port.SnapshotSource) *PortfolioHandler {
	return &PortfolioHandler{snapshots: source}
}

// GetPortfolioHandler returns the last snapshot, or 404 before the first balance run.
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	snap, ok := h.snapshots.LastSnapshot()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status_message": "No snapshot yet. Run `balance` in the session first."})
		return
	}

	var response APIPortfolioResponse
	response.Data.ID = snap.ID.String()
	response.Data.TakenAt = snap.TakenAt.Format("2006-01-02T15:04:05Z07:00")
	response.Data.TotalUSD = snap.Total.StringFixed(2)
	response.Data.Unpriced = snap.Unpriced
	response.Data.Holdings = make([]APIHolding, 0, len(snap.Holdings))
	for _, holding := range snap.Holdings {
		response.Data.Holdings = append(response.Data.Holdings, APIHolding{Holding: holding, FormattedAmount: holding.FormattedAmount()})
	}
	response.EntryErrors = snap.Errors

	switch {
	case len(snap.Errors) > 0 && len(snap.Holdings) == 0:
		response.StatusMessage = "No holdings retrieved; every entry failed."
	case len(snap.Errors) > 0:
		response.StatusMessage = "Portfolio retrieved. Some entries failed or are unpriced."
	case len(snap.Holdings) == 0:
		response.StatusMessage = "No holdings found. Check tracked accounts and enabled chains."
	default:
		response.StatusMessage = "Portfolio retrieved successfully."
	}

	c.JSON(http.StatusOK, response)
}
