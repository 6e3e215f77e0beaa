package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"watchdogd/internal/service"
	"watchdogd/internal/wdt"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK        = "ok"
	statusArmed     = "armed"
	statusDisarmed  = "disarmed"
	statusKicked    = "kicked"
	statusResetting = "resetting"

	errDisarmWatchdog  = "failed to disarm watchdog"
	errKickWatchdog    = "failed to kick watchdog"
	errGetStatus       = "failed to load status"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include the merged watchdog view if available (best-effort).
func (h *Handler) respondWithStatus(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	st, err := h.services.Monitoring.GetStatus(ctx)
	if err == nil {
		resp["watchdog"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// Request DTO for arming the timer.
type armRequest struct {
	TimeoutMS uint64 `json:"timeout_ms" binding:"required,min=1"`
}

// ArmRequest is an exported model for Swagger docs of the arm payload.
type ArmRequest struct {
	// Requested timeout in milliseconds. The granted interval is the next
	// hardware step at or above this value.
	TimeoutMS uint64 `json:"timeout_ms" example:"30000"`
}

// Request DTO for the force-reset trigger.
type forceResetRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ForceResetRequest is an exported model for Swagger docs of the force-reset payload.
type ForceResetRequest struct {
	// Free-form operator note recorded in the event log before the reset fires.
	Reason string `json:"reason,omitempty" example:"manual failover drill"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Arm the watchdog
// @Description  Programs the smallest hardware interval at or above timeout_ms and starts the countdown
// @Tags         watchdog
// @Accept       json
// @Produce      json
// @Param        body  body   ArmRequest  true  "Arm payload"
// @Success      200   {object}  map[string]interface{}  "status, granted_ms, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/watchdog/arm [post]
// @Security     BearerAuth
func (h *Handler) armWatchdog(c *gin.Context) {
	var req armRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	st, err := h.services.Watchdog.Arm(ctx, time.Duration(req.TimeoutMS)*time.Millisecond)
	if err != nil {
		// Timeouts the hardware cannot satisfy are the caller's fault; the rest is internal.
		code := http.StatusInternalServerError
		if errors.Is(err, wdt.ErrTimeoutTooLong) || errors.Is(err, service.ErrInvalidTimeout) {
			code = http.StatusBadRequest
		}
		if h.log != nil {
			h.log.Errorw("watchdog_arm_failed", "err", err, "timeout_ms", req.TimeoutMS)
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     statusArmed,
		"granted_ms": st.IntervalMillis,
		"state":      st,
	})
}

// @Summary      Disarm the watchdog
// @Tags         watchdog
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, watchdog"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/watchdog/disarm [post]
// @Security     BearerAuth
func (h *Handler) disarmWatchdog(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Watchdog.Disarm(ctx); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errDisarmWatchdog, "watchdog_disarm_failed", err)
		return
	}
	h.respondWithStatus(c, statusDisarmed, gin.H{})
}

// @Summary      Kick the watchdog
// @Description  Restarts the countdown from the programmed interval
// @Tags         watchdog
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string  "watchdog not armed"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/watchdog/kick [post]
// @Security     BearerAuth
func (h *Handler) kickWatchdog(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Watchdog.Kick(ctx); err != nil {
		if errors.Is(err, service.ErrNotArmed) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errKickWatchdog, "watchdog_kick_failed", err)
		return
	}
	h.respondWithStatus(c, statusKicked, gin.H{})
}

// @Summary      Force an immediate hardware reset
// @Description  Schedules the reset and returns before it fires; the connection dies when the board reboots
// @Tags         watchdog
// @Accept       json
// @Produce      json
// @Param        body  body   ForceResetRequest  false  "Optional reason"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/watchdog/force-reset [post]
// @Security     BearerAuth
func (h *Handler) forceReset(c *gin.Context) {
	var req forceResetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	if h.log != nil {
		h.log.Warnw("watchdog_force_reset_requested", "reason", req.Reason, userIDKey, c.GetInt(userIDKey))
	}
	c.JSON(http.StatusAccepted, gin.H{"status": statusResetting})
	// The trigger never returns once it reaches the hardware, so it runs off
	// the request goroutine and the 202 escapes before the spin begins.
	go func(reason string) {
		if err := h.services.Watchdog.ForceReset(context.Background(), reason); err != nil && h.log != nil {
			h.log.Errorw("watchdog_force_reset_failed", "err", err)
		}
	}(req.Reason)
}

// @Summary      Get watchdog status
// @Description  Persisted arming intent plus the live register readback
// @Tags         watchdog
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "state, hardware"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/watchdog/state [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetStatus(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "watchdog_get_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
