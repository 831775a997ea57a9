package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/notblessy/coinsnap/db"
	"github.com/notblessy/coinsnap/models"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 500
)

type SnapshotHandler struct {
	store *db.SnapshotStore
}

func NewSnapshotHandler(gdb *gorm.DB) *SnapshotHandler {
	return &SnapshotHandler{
		store: db.NewSnapshotStore(gdb),
	}
}

type snapshotListResponse struct {
	Snapshots []models.CryptoSnapshot `json:"snapshots"`
	Count     int                     `json:"count"`
}

// limitParam reads the limit query parameter, falling back and capping as
// needed. ok is false when the value is present but not a positive integer.
func limitParam(c echo.Context, fallback int) (limit int, ok bool) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	if parsed > maxRecentLimit {
		parsed = maxRecentLimit
	}
	return parsed, true
}

// GetRecent returns the newest snapshot rows.
// GET /api/snapshots/recent?limit=25
func (h *SnapshotHandler) GetRecent(c echo.Context) error {
	limit, ok := limitParam(c, defaultRecentLimit)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "limit must be a positive integer",
		})
	}

	snapshots, err := h.store.Recent(limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to fetch snapshots",
		})
	}

	return c.JSON(http.StatusOK, snapshotListResponse{
		Snapshots: snapshots,
		Count:     len(snapshots),
	})
}

// Search returns snapshots whose name contains the query term, newest first.
// GET /api/snapshots/search?name=bitcoin
func (h *SnapshotHandler) Search(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "name query parameter is required",
		})
	}

	snapshots, err := h.store.SearchByName(name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to search snapshots",
		})
	}

	return c.JSON(http.StatusOK, snapshotListResponse{
		Snapshots: snapshots,
		Count:     len(snapshots),
	})
}

// GetGainers returns the latest pass's strongest 24h gainers.
// GET /api/snapshots/gainers?limit=10
func (h *SnapshotHandler) GetGainers(c echo.Context) error {
	limit, ok := limitParam(c, defaultRecentLimit)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "limit must be a positive integer",
		})
	}

	snapshots, err := h.store.TopGainers(limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to fetch gainers",
		})
	}

	return c.JSON(http.StatusOK, snapshotListResponse{
		Snapshots: snapshots,
		Count:     len(snapshots),
	})
}

// GetLosers returns the latest pass's steepest 24h losers.
// GET /api/snapshots/losers?limit=10
func (h *SnapshotHandler) GetLosers(c echo.Context) error {
	limit, ok := limitParam(c, defaultRecentLimit)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "limit must be a positive integer",
		})
	}

	snapshots, err := h.store.TopLosers(limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to fetch losers",
		})
	}

	return c.JSON(http.StatusOK, snapshotListResponse{
		Snapshots: snapshots,
		Count:     len(snapshots),
	})
}

// GetStats returns totals for the whole table.
// GET /api/stats
func (h *SnapshotHandler) GetStats(c echo.Context) error {
	stats, err := h.store.Stats()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to compute stats",
		})
	}
	return c.JSON(http.StatusOK, stats)
}
