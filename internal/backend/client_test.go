package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/courtside/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api", RPS: 1000, Burst: 100}, nil)
	require.NoError(t, err)
	return c
}

var testSession = Session{Token: "secret-token", Subject: "u1"}

func TestClientSendsBearerAndDecodesFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fields", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"field_id":1,"name":"Court A","available":true}]`)
	})

	fields, err := c.Fields(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, []domain.Field{{ID: 1, Name: "Court A", Available: true}}, fields)
}

func TestClientNullListIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	})

	prices, err := c.ActivePrices(context.Background(), testSession, "2024-06-03")
	require.NoError(t, err)
	assert.NotNil(t, prices)
	assert.Empty(t, prices)
}

func TestClientReservationQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reservations/date/2024-06-03", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "asc", q.Get("order_time"))
		assert.Equal(t, "", q.Get("order_price"))
		assert.Equal(t, "3", q.Get("field_id"))
		assert.True(t, q.Has("price_id"))
		_, _ = io.WriteString(w, `[{"reservation_id":9,"field_id":3,"date":"2024-06-03","initial_time":"10:00","end_time":"11:30","cancelled":false}]`)
	})

	res, err := c.Reservations(context.Background(), testSession, ReservationQuery{
		Date:      "2024-06-03",
		OrderTime: domain.SortAsc,
		FieldID:   3,
	})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, int64(9), res[0].ID)
	assert.Equal(t, "10:00", res[0].InitialTime)
}

func TestClientCreateReservationBody(t *testing.T) {
	var got map[string]map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/reservations/create", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	err := c.CreateReservation(context.Background(), testSession, CreateReservationRequest{
		FieldID:     1,
		PriceID:     2,
		InitialTime: "2024-06-03 09:00:00",
		EndTime:     "2024-06-03 10:30:00",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"fields_id":    1.0,
		"price_id":     2.0,
		"initial_time": "2024-06-03 09:00:00",
		"end_time":     "2024-06-03 10:30:00",
	}, got["data"])
}

func TestClientCreateWaitlistBody(t *testing.T) {
	var got map[string]map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/waitlist/create", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	err := c.CreateWaitlistEntry(context.Background(), testSession, CreateWaitlistRequest{InterestedTime: "2024-06-03 09:00:00"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"silence": false, "interested_time": "2024-06-03 09:00:00"}, got["data"])
}

func TestClientErrorBodies(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		is      error
	}{
		{"flat", http.StatusConflict, `{"error":"Field already booked"}`, "Field already booked", ErrConflict},
		{"nested", http.StatusUnprocessableEntity, `{"response":{"data":{"error":"Already on waitlist"}}}`, "Already on waitlist", nil},
		{"unauthorized", http.StatusUnauthorized, `{"error":"Not authenticated"}`, "Not authenticated", ErrUnauthorized},
		{"plain", http.StatusBadRequest, `bad date`, "bad date", nil},
		{"empty", http.StatusInternalServerError, ``, "Internal Server Error", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := c.CreateReservation(context.Background(), testSession, CreateReservationRequest{})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.message, UserMessage(err))
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = c.Waitlist(context.Background(), testSession)
	require.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, "Could not reach the booking service, please try again", UserMessage(err))
}

func TestClientCanceledRequest(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Fields(ctx, testSession)
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
}

func TestClientRejectsMissingAndExpiredSessions(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.Fields(context.Background(), Session{})
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = c.Fields(context.Background(), Session{Token: "x", ExpiresAt: time.Now().Add(-time.Minute)})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, called)
}

func TestNewSession(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "client-42",
		"exp": exp.Unix(),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	sess, err := NewSession("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, tok, sess.Token)
	assert.Equal(t, "client-42", sess.Subject)
	assert.True(t, sess.ExpiresAt.Equal(exp))
	assert.False(t, sess.Expired(time.Now()))
	assert.True(t, sess.Expired(exp.Add(time.Second)))

	opaque, err := NewSession("abc123")
	require.NoError(t, err)
	assert.Regexp(t, `^tok:[0-9a-f]{16}$`, opaque.Subject)
	assert.True(t, opaque.ExpiresAt.IsZero())

	_, err = NewSession("  ")
	assert.True(t, errors.Is(err, ErrNoSession))
}
