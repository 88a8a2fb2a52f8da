package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/courtside/internal/backend"
	"github.com/kirinyoku/courtside/internal/domain"
	redisrepo "github.com/kirinyoku/courtside/internal/repository/redis"
	"github.com/kirinyoku/courtside/internal/schedule"
	"github.com/kirinyoku/courtside/internal/service"
	"github.com/kirinyoku/courtside/internal/service/activity"
	"github.com/kirinyoku/courtside/internal/service/availability"
	"github.com/kirinyoku/courtside/internal/service/dispatch"
)

const idemLockTTL = 30 * time.Second

type RouterConfig struct {
	CORSOrigins []string
}

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	cfg RouterConfig,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS(cfg.CORSOrigins))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sched := r.Group("/schedule", SessionMiddleware(nil))
	{
		sched.GET("", handleGetSchedule(svcs))
		sched.GET("/options", handleGetOptions(svcs))
		sched.POST("/reservations", handleToggle(svcs, idem, domain.ActionReservation))
		sched.POST("/waitlist", handleToggle(svcs, idem, domain.ActionWaitlist))
		sched.GET("/actions", handleListActions(svcs))
	}

	return r
}

// @Summary  Annotated schedule for one date
// @Security BearerAuth
// @Param    date         query  string  true   "YYYY-MM-DD"
// @Param    field        query  string  false  "field name or All"
// @Param    time         query  string  false  "start time HH:MM or All"
// @Param    order_time   query  string  false  "asc | desc"
// @Param    order_price  query  string  false  "asc | desc"
// @Param    field_id     query  int     false  "narrow the reservations query"
// @Param    price_id     query  int     false  "narrow the reservations query"
// @Success  200  {object}  ScheduleResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /schedule [get]
func handleGetSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sel, ok := parseSelection(c)
		if !ok {
			return
		}

		v, err := svcs.Availability.View(c.Request.Context(), sessionFrom(c), sel)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := ScheduleResponse{Date: v.Date, Slots: v.Slots}
		if resp.Slots == nil {
			resp.Slots = []domain.AnnotatedSlot{}
		}
		for _, w := range v.Warnings {
			_ = c.Error(w)
			resp.Warnings = append(resp.Warnings, warningText(w))
		}

		writeJSONWithCache(c, http.StatusOK, resp, "private, no-cache")
	}
}

// @Summary  Date, time and field dropdowns
// @Security BearerAuth
// @Param    date  query  string  true  "YYYY-MM-DD"
// @Success  200  {object}  OptionsResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  502  {object}  ErrorResponse
// @Router   /schedule/options [get]
func handleGetOptions(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, err := svcs.Availability.Options(c.Request.Context(), sessionFrom(c), c.Query("date"))
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, OptionsResponse{
			Dates:  opts.Dates,
			Times:  opts.Times,
			Fields: opts.Fields,
		}, "private, max-age=60")
	}
}

// @Summary  Reserve a slot or join its waitlist (idempotent)
// @Security BearerAuth
// @Param    req  body  ToggleRequest  true  "slot"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201  {object}  ToggleResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse "slot not offered"
// @Failure  409  {object}  ErrorResponse "slot taken / already waitlisted / idem in progress"
// @Failure  429  {object}  ErrorResponse "rate limited"
// @Router   /schedule/reservations [post]
// @Router   /schedule/waitlist [post]
func handleToggle(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	kind domain.ActionKind,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ToggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sess := sessionFrom(c)
		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemToggle(string(kind), sess.Subject, idemKey)

			if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		action, err := svcs.Dispatch.ToggleByKey(ctx, sess, kind, req.Date, domain.SlotKey{
			FieldID: req.FieldID,
			PriceID: req.PriceID,
		})
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := ToggleResponse{Action: action}

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(ctx, idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Toggles this session dispatched
// @Security BearerAuth
// @Param    date   query  string  false  "YYYY-MM-DD"
// @Param    limit  query  int     false  "page size"
// @Success  200  {object}  ActionsResponse
// @Failure  503  {object}  ErrorResponse "journal disabled"
// @Router   /schedule/actions [get]
func handleListActions(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Query("date")
		if date != "" {
			d, err := schedule.ParseDate(date)
			if err != nil {
				respondErr(c, err)
				return
			}
			date = d
		}

		actions, err := svcs.Activity.List(
			c.Request.Context(),
			sessionFrom(c).Subject,
			date,
			parseIntDefault(c.Query("limit"), 0),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ActionsResponse{Actions: actions})
	}
}

// --- Helpers ---

func parseSelection(c *gin.Context) (domain.Selection, bool) {
	sel := domain.Selection{
		Date:       c.Query("date"),
		Field:      c.DefaultQuery("field", domain.All),
		Time:       c.DefaultQuery("time", domain.All),
		OrderTime:  schedule.ParseSortOrder(c.Query("order_time")),
		OrderPrice: schedule.ParseSortOrder(c.Query("order_price")),
	}

	if sel.Time != domain.All && sel.Time != "" {
		clock, err := schedule.NormalizeClock(sel.Time)
		if err != nil {
			respondErr(c, err)
			return sel, false
		}
		sel.Time = clock
	}

	var ok bool
	if sel.FieldID, ok = parseOptionalID(c, "field_id"); !ok {
		return sel, false
	}
	if sel.PriceID, ok = parseOptionalID(c, "price_id"); !ok {
		return sel, false
	}
	return sel, true
}

func parseOptionalID(c *gin.Context, name string) (int64, bool) {
	s := c.Query(name)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func warningText(err error) string {
	var se *availability.SourceError
	if errors.As(err, &se) {
		return string(se.Source) + ": " + backend.UserMessage(se.Err)
	}
	return backend.UserMessage(err)
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	_ = c.Error(err)
	msg := dispatch.UserMessage(err)

	var rl *dispatch.RateLimitedError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: msg})
		return
	}

	switch {
	// input
	case errors.Is(err, schedule.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
	// session
	case errors.Is(err, backend.ErrNoSession),
		errors.Is(err, backend.ErrSessionExpired),
		errors.Is(err, backend.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msg})
	// dispatch
	case errors.Is(err, dispatch.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msg})
	case errors.Is(err, dispatch.ErrSlotReserved),
		errors.Is(err, dispatch.ErrSlotWaitlisted),
		errors.Is(err, dispatch.ErrReservationConflict),
		errors.Is(err, dispatch.ErrWaitlistConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: msg})
	case errors.Is(err, dispatch.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown action"})
	// journal
	case errors.Is(err, activity.ErrDisabled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "action journal is disabled"})
	// upstream
	case errors.Is(err, backend.ErrNetwork), errors.Is(err, availability.ErrSourceFailed):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: msg})
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: msg})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
	}
}
