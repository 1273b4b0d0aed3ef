package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/database"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

// CleanReader reads clean rows. *database.CleanDataRepository implements it.
type CleanReader interface {
	GetBySource(ctx context.Context, table string, sourceID int64) (*domain.CleanData, error)
}

// CleanHandler serves the newest clean record of a source.
type CleanHandler struct {
	clean CleanReader
	log   logger.Logger
}

// NewCleanHandler creates a new clean data handler.
func NewCleanHandler(clean CleanReader, log logger.Logger) *CleanHandler {
	return &CleanHandler{clean: clean, log: log}
}

// GetBySource handles GET /api/v1/clean/:table/:source_id
// Board game info rows additionally carry their typed view under "boardgame".
func (h *CleanHandler) GetBySource(c *gin.Context) {
	table := c.Param("table")
	sourceID, err := strconv.ParseInt(c.Param("source_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid source_id")
		return
	}

	row, err := h.clean.GetBySource(c.Request.Context(), table, sourceID)
	if errors.Is(err, database.ErrCleanNotFound) {
		respondNotFound(c, "Clean data")
		return
	}
	if err != nil {
		h.log.Error("Failed to get clean data",
			logger.String("source_table", table),
			logger.Int64("source_id", sourceID),
			logger.Error(err),
		)
		respondInternalError(c, "Failed to retrieve clean data")
		return
	}

	response := gin.H{"clean": row}
	if table == domain.SourceBoardGameInfo {
		var info domain.BoardGameInfo
		if decodeErr := row.Decode(&info); decodeErr != nil {
			h.log.Warn("Failed to decode clean payload", logger.Int64("clean_id", row.ID), logger.Error(decodeErr))
		} else {
			response["boardgame"] = info
		}
	}

	c.JSON(http.StatusOK, response)
}
