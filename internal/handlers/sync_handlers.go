package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"gekosync/internal/caching"
	"gekosync/internal/jobs/background"
	"gekosync/internal/models"
	"gekosync/internal/repositories"
	"gekosync/internal/services"

	"github.com/labstack/echo/v4"
)

// SyncRunner mirrors the sync service entry point so handlers can be tested
// without a database.
type SyncRunner interface {
	Run(ctx context.Context, syncType models.SyncType, url string) (*services.SyncResult, error)
}

// SyncScheduler is the scheduler surface the control API drives.
type SyncScheduler interface {
	StartSync(apiURL string, intervalMinutes int) error
	StopSync() error
	Status() background.ScheduleStatus
}

// SyncHandlers exposes the ingestion control API consumed by the admin UI.
// Every endpoint answers a {success, data|message|error} envelope instead of
// leaking errors to the caller.
type SyncHandlers struct {
	runner          SyncRunner
	scheduler       SyncScheduler
	healthRepo      repositories.SyncHealthRepository
	cache           caching.CacheService
	defaultURL      string
	defaultInterval int
}

func NewSyncHandlers(
	runner SyncRunner,
	scheduler SyncScheduler,
	healthRepo repositories.SyncHealthRepository,
	cache caching.CacheService,
	defaultURL string,
	defaultInterval int,
) *SyncHandlers {
	return &SyncHandlers{
		runner:          runner,
		scheduler:       scheduler,
		healthRepo:      healthRepo,
		cache:           cache,
		defaultURL:      defaultURL,
		defaultInterval: defaultInterval,
	}
}

// StartSyncRequest is the start-sync payload; both fields fall back to config.
type StartSyncRequest struct {
	APIURL          string `json:"apiUrl"`
	IntervalMinutes int    `json:"intervalMinutes"`
}

// StartSync registers the recurring sync job, replacing any active one.
func (h *SyncHandlers) StartSync(c echo.Context) error {
	var req StartSyncRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	if req.APIURL == "" {
		req.APIURL = h.defaultURL
	}
	if req.IntervalMinutes <= 0 {
		req.IntervalMinutes = h.defaultInterval
	}

	if err := h.scheduler.StartSync(req.APIURL, req.IntervalMinutes); err != nil {
		log.Printf("WARN: start-sync rejected: %v", err)
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	return respondOK(c, h.scheduler.Status())
}

// StopSync cancels the active job; stopping an idle scheduler succeeds.
func (h *SyncHandlers) StopSync(c echo.Context) error {
	if err := h.scheduler.StopSync(); err != nil {
		return respondError(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Sync scheduling stopped",
	})
}

// SyncStatus reports the job slot plus the most recent run when cached.
func (h *SyncHandlers) SyncStatus(c echo.Context) error {
	data := map[string]any{
		"schedule": h.scheduler.Status(),
	}
	if h.cache != nil {
		if last, err := h.cache.GetLastSync(c.Request().Context()); err == nil {
			data["last_sync"] = last
		}
	}
	return respondOK(c, data)
}

// ManualSyncRequest is the manual trigger payload.
type ManualSyncRequest struct {
	APIURL string `json:"apiUrl"`
}

// ManualSync runs the full pipeline synchronously, independent of the
// scheduler, and returns duration plus stats.
func (h *SyncHandlers) ManualSync(c echo.Context) error {
	var req ManualSyncRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}
	if req.APIURL == "" {
		req.APIURL = h.defaultURL
	}
	if req.APIURL == "" {
		return respondError(c, http.StatusBadRequest, "No catalog URL configured")
	}

	result, err := h.runner.Run(c.Request().Context(), models.SyncTypeManual, req.APIURL)
	if err != nil {
		// The run itself is the response even when it failed; the health
		// record carries the detail.
		return c.JSON(http.StatusOK, map[string]any{
			"success": false,
			"data":    result,
			"error":   err.Error(),
		})
	}
	return respondOK(c, result)
}

// HealthRecent lists the latest sync health records.
func (h *SyncHandlers) HealthRecent(c echo.Context) error {
	limit := intQueryParam(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	offset := intQueryParam(c, "offset", 0)

	records, err := h.healthRepo.ListRecent(c.Request().Context(), limit, offset)
	if err != nil {
		log.Printf("WARN: failed to list sync health records: %v", err)
		return respondError(c, http.StatusInternalServerError, "Failed to list sync health records")
	}

	return respondOK(c, map[string]any{
		"records": records,
		"limit":   limit,
		"offset":  offset,
	})
}

// HealthStats aggregates run outcomes over a date range (default: last 7
// days), with a short-lived cache in front of the query.
func (h *SyncHandlers) HealthStats(c echo.Context) error {
	ctx := c.Request().Context()

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -7)
	var err error
	if v := c.QueryParam("startDate"); v != "" {
		if start, err = parseDate(v); err != nil {
			return respondError(c, http.StatusBadRequest, "Invalid startDate")
		}
	}
	if v := c.QueryParam("endDate"); v != "" {
		if end, err = parseDate(v); err != nil {
			return respondError(c, http.StatusBadRequest, "Invalid endDate")
		}
		// An endDate without a time component means "through that day".
		if end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 {
			end = end.AddDate(0, 0, 1)
		}
	}

	cacheKey := start.Format("2006-01-02") + ":" + end.Format("2006-01-02")
	if h.cache != nil {
		if stats, err := h.cache.GetHealthStats(ctx, cacheKey); err == nil {
			return respondOK(c, stats)
		}
	}

	stats, err := h.healthRepo.Stats(ctx, start, end)
	if err != nil {
		log.Printf("WARN: failed to compute sync health stats: %v", err)
		return respondError(c, http.StatusInternalServerError, "Failed to compute sync health stats")
	}

	if h.cache != nil {
		if err := h.cache.SetHealthStats(ctx, cacheKey, stats, time.Minute); err != nil {
			log.Printf("WARN: failed to cache health stats: %v", err)
		}
	}

	return respondOK(c, stats)
}

func respondOK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

func respondError(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]any{
		"success": false,
		"error":   message,
	})
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
