package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirinyoku/courtside/internal/domain"
)

const maxBodyBytes = 4 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Burst   int
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the booking backend's REST API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	const op = "backend.New"

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s: missing base url", op)
	}

	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}

	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: u,
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		logger:  logger,
		now:     time.Now,
	}, nil
}

// ReservationQuery selects the reservations of one date. Zero ids and empty
// orders are sent as empty parameters.
type ReservationQuery struct {
	Date       string
	OrderPrice domain.SortOrder
	OrderTime  domain.SortOrder
	FieldID    int64
	PriceID    int64
}

type CreateReservationRequest struct {
	FieldID     int64  `json:"fields_id"`
	PriceID     int64  `json:"price_id"`
	InitialTime string `json:"initial_time"`
	EndTime     string `json:"end_time"`
}

type CreateWaitlistRequest struct {
	Silence        bool   `json:"silence"`
	InterestedTime string `json:"interested_time"`
}

type envelope struct {
	Data any `json:"data"`
}

func (c *Client) Fields(ctx context.Context, sess Session) ([]domain.Field, error) {
	const op = "backend.Fields"

	var out []domain.Field
	if err := c.do(ctx, sess, http.MethodGet, "/fields", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nonNil(out), nil
}

func (c *Client) ActivePrices(ctx context.Context, sess Session, date string) ([]domain.PriceDefinition, error) {
	const op = "backend.ActivePrices"

	var out []domain.PriceDefinition
	path := "/prices/active/" + url.PathEscape(date)
	if err := c.do(ctx, sess, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nonNil(out), nil
}

func (c *Client) Reservations(ctx context.Context, sess Session, q ReservationQuery) ([]domain.Reservation, error) {
	const op = "backend.Reservations"

	params := url.Values{}
	params.Set("order_price", string(q.OrderPrice))
	params.Set("order_time", string(q.OrderTime))
	params.Set("field_id", optionalID(q.FieldID))
	params.Set("price_id", optionalID(q.PriceID))

	var out []domain.Reservation
	path := "/reservations/date/" + url.PathEscape(q.Date)
	if err := c.do(ctx, sess, http.MethodGet, path, params, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nonNil(out), nil
}

func (c *Client) Waitlist(ctx context.Context, sess Session) ([]domain.WaitlistEntry, error) {
	const op = "backend.Waitlist"

	var out []domain.WaitlistEntry
	if err := c.do(ctx, sess, http.MethodGet, "/waitlist", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nonNil(out), nil
}

func (c *Client) CreateReservation(ctx context.Context, sess Session, req CreateReservationRequest) error {
	const op = "backend.CreateReservation"

	if err := c.do(ctx, sess, http.MethodPost, "/reservations/create", nil, envelope{Data: req}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) CreateWaitlistEntry(ctx context.Context, sess Session, req CreateWaitlistRequest) error {
	const op = "backend.CreateWaitlistEntry"

	if err := c.do(ctx, sess, http.MethodPost, "/waitlist/create", nil, envelope{Data: req}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) do(
	ctx context.Context,
	sess Session,
	method, path string,
	params url.Values,
	body any,
	out any,
) error {
	if sess.Token == "" {
		return ErrNoSession
	}
	if sess.Expired(c.now()) {
		return ErrSessionExpired
	}

	u := *c.baseURL
	u.Path = u.Path + path
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", sess.authorization())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	c.logger.Debug("backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func optionalID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// IsCanceled reports whether err comes from a superseded or aborted request.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
