package ticket_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"valet-ticketing/internal/auth"
	"valet-ticketing/internal/identity"
	"valet-ticketing/internal/logger"
	"valet-ticketing/internal/models"
	ticketdb "valet-ticketing/internal/tickets/db"
	tickets "valet-ticketing/internal/tickets/service"
	"valet-ticketing/internal/tickets/ticket_api"
)

var testDriver = identity.Actor{
	ID:           "d1",
	Username:     "driver1",
	Role:         identity.RoleDriver,
	PointID:      "p1",
	SupervisorID: "m1",
}

func setupRouter(t *testing.T, actor identity.Actor) (*chi.Mux, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := bunDB.NewCreateTable().Model((*models.Ticket)(nil)).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to create ticket table: %v", err)
	}

	log := logger.NewLogger()
	t.Cleanup(log.Close)

	svc := tickets.NewTicketService(&ticketdb.DB{Bun: bunDB}, nil, nil, nil, log)
	handler := ticket_api.NewHandler(svc, log)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithActor(req.Context(), actor)))
		})
	})
	r.Post("/tickets/in", handler.CarIn)
	r.Post("/tickets/out/{ticketID}", handler.CarOut)
	r.Get("/tickets", handler.ListTickets)
	r.Get("/tickets/live", handler.LiveStatus)

	return r, bunDB
}

func TestCarInEndpoint(t *testing.T) {
	router, bunDB := setupRouter(t, testDriver)
	defer bunDB.Close()

	body := bytes.NewBufferString(`{"vehicle_number": "ka01ab1234", "lane_number": "2"}`)
	req := httptest.NewRequest(http.MethodPost, "/tickets/in", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data models.Ticket `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Data.SequenceNumber)
	assert.Equal(t, "KA01AB1234", resp.Data.VehicleNumber)
	assert.Equal(t, "N/A", resp.Data.CustomerName)
	assert.Equal(t, models.TicketStatusOpen, resp.Data.Status)
}

func TestCarInRejectsUnknownFields(t *testing.T) {
	router, bunDB := setupRouter(t, testDriver)
	defer bunDB.Close()

	body := bytes.NewBufferString(`{"vehicle_number": "KA01", "point_id": "p9"}`)
	req := httptest.NewRequest(http.MethodPost, "/tickets/in", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCarInRequiresAuthentication(t *testing.T) {
	router, bunDB := setupRouter(t, identity.Actor{})
	defer bunDB.Close()

	body := bytes.NewBufferString(`{"vehicle_number": "KA01"}`)
	req := httptest.NewRequest(http.MethodPost, "/tickets/in", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCarOutEndpoint(t *testing.T) {
	router, bunDB := setupRouter(t, testDriver)
	defer bunDB.Close()

	body := bytes.NewBufferString(`{"vehicle_number": "KA01"}`)
	req := httptest.NewRequest(http.MethodPost, "/tickets/in", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data models.Ticket `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodPost, "/tickets/out/"+created.Data.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Closing again conflicts
	req = httptest.NewRequest(http.MethodPost, "/tickets/out/"+created.Data.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown ticket
	req = httptest.NewRequest(http.MethodPost, "/tickets/out/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTicketsEndpoint(t *testing.T) {
	router, bunDB := setupRouter(t, testDriver)
	defer bunDB.Close()

	for _, vehicle := range []string{"KA01AB0001", "KA01AB0002"} {
		body := bytes.NewBufferString(`{"vehicle_number": "` + vehicle + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/tickets/in", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/tickets?sort=sequence", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var listed []models.Ticket
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 2)
	assert.Equal(t, int64(1), listed[0].SequenceNumber)
	assert.Equal(t, int64(2), listed[1].SequenceNumber)
}
