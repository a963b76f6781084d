package controllers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/Faith-Anthony/presently/api/middleware"
	"github.com/Faith-Anthony/presently/internal/claims"
	"github.com/Faith-Anthony/presently/internal/items"
	"github.com/Faith-Anthony/presently/internal/reservations"
	"github.com/Faith-Anthony/presently/internal/snapshots"
	"github.com/Faith-Anthony/presently/pkg/enums"
	pkgerrors "github.com/Faith-Anthony/presently/pkg/errors"
)

type stubReservationService struct {
	view       *reservations.PublicWishlistDTO
	reserved   *reservations.ReserveResponse
	released   *items.ItemDTO
	err        error
	lastToken  string
	lastViewer reservations.Viewer
}

func (s *stubReservationService) PublicView(ctx context.Context, wishlistID uuid.UUID, viewer reservations.Viewer) (*reservations.PublicWishlistDTO, error) {
	s.lastViewer = viewer
	return s.view, s.err
}

func (s *stubReservationService) Reserve(ctx context.Context, wishlistID, itemID uuid.UUID, viewer reservations.Viewer, req reservations.ReserveRequest) (*reservations.ReserveResponse, error) {
	s.lastViewer = viewer
	return s.reserved, s.err
}

func (s *stubReservationService) Unreserve(ctx context.Context, wishlistID, itemID uuid.UUID, req reservations.UnreserveRequest) (*items.ItemDTO, error) {
	s.lastToken = req.ClaimToken
	return s.released, s.err
}

type memoryClaimsStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryClaimsStore() *memoryClaimsStore {
	return &memoryClaimsStore{data: map[string]string{}}
}

func (m *memoryClaimsStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryClaimsStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redislib.Nil
}

func (m *memoryClaimsStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryClaimsStore) ClaimLedgerKey(deviceID string) string {
	return "claims:" + deviceID
}

func newTestLedger(t *testing.T) *claims.Ledger {
	t.Helper()
	ledger, err := claims.NewLedger(newMemoryClaimsStore(), 0)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return ledger
}

func publicRouter(svc reservations.Service, ledger *claims.Ledger, hub *snapshots.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.DeviceContext())
	r.Get("/public/wishlists/{wishlistID}", PublicWishlist(svc, ledger, nil))
	r.Post("/public/wishlists/{wishlistID}/items/{itemID}/reserve", PublicReserve(svc, ledger, nil))
	r.Post("/public/wishlists/{wishlistID}/items/{itemID}/unreserve", PublicUnreserve(svc, ledger, nil))
	r.With(middleware.RequireDevice(nil)).Get("/claims", PublicClaims(ledger, nil))
	if hub != nil {
		r.Get("/public/wishlists/{wishlistID}/stream", PublicWishlistStream(hub, nil))
	}
	return r
}

func TestPublicReserveRecordsLedger(t *testing.T) {
	wishlistID := uuid.New()
	itemID := uuid.New()
	reservedAt := time.Now().UTC()
	name := "Grace"
	svc := &stubReservationService{reserved: &reservations.ReserveResponse{
		Item: items.ItemDTO{
			ID:          itemID,
			WishlistID:  wishlistID,
			Reservation: &items.ReservationView{ReservedBy: &name, ReservedAt: &reservedAt},
		},
		ClaimToken: "claim-token",
	}}
	ledger := newTestLedger(t)
	router := publicRouter(svc, ledger, nil)

	url := fmt.Sprintf("/public/wishlists/%s/items/%s/reserve", wishlistID, itemID)
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(`{"name":"Grace","phone":"+2348012345678"}`)))
	req.Header.Set("X-Presently-Device", "device-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	token, ok, err := ledger.TokenFor(context.Background(), "device-1", itemID)
	if err != nil || !ok {
		t.Fatalf("expected ledger entry, ok=%v err=%v", ok, err)
	}
	if token != "claim-token" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestPublicUnreserveFallsBackToLedger(t *testing.T) {
	wishlistID := uuid.New()
	itemID := uuid.New()
	svc := &stubReservationService{released: &items.ItemDTO{ID: itemID, WishlistID: wishlistID}}
	ledger := newTestLedger(t)
	if err := ledger.Record(context.Background(), "device-1", claims.Entry{
		ItemID:     itemID,
		WishlistID: wishlistID,
		ClaimToken: "ledger-token",
		ReservedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	router := publicRouter(svc, ledger, nil)

	url := fmt.Sprintf("/public/wishlists/%s/items/%s/unreserve", wishlistID, itemID)
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Presently-Device", "device-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastToken != "ledger-token" {
		t.Fatalf("expected ledger token forwarded, got %q", svc.lastToken)
	}

	if _, ok, _ := ledger.TokenFor(context.Background(), "device-1", itemID); ok {
		t.Fatal("expected ledger entry removed after release")
	}
}

func TestPublicUnreserveWithoutTokenOrLedger(t *testing.T) {
	svc := &stubReservationService{}
	router := publicRouter(svc, newTestLedger(t), nil)

	url := fmt.Sprintf("/public/wishlists/%s/items/%s/unreserve", uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(`{}`)))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestPublicClaimsRequiresDevice(t *testing.T) {
	router := publicRouter(&stubReservationService{}, newTestLedger(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/claims", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPublicWishlistNotFound(t *testing.T) {
	svc := &stubReservationService{err: pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")}
	router := publicRouter(svc, newTestLedger(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/public/wishlists/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected code %s", payload.Error.Code)
	}
}

func TestPublicWishlistStatusFilter(t *testing.T) {
	wishlistID := uuid.New()
	reservedName := "Grace"
	view := &reservations.PublicWishlistDTO{
		ID:   wishlistID,
		Name: "Shared",
		Items: []reservations.PublicItemDTO{
			{ItemDTO: items.ItemDTO{ID: uuid.New(), Name: "Socks", Status: enums.ItemStatusUnpicked}},
			{ItemDTO: items.ItemDTO{ID: uuid.New(), Name: "Mug", Status: enums.ItemStatusReserved}, ReservedBy: &reservedName},
		},
	}
	svc := &stubReservationService{view: view}
	router := publicRouter(svc, newTestLedger(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/public/wishlists/"+wishlistID.String()+"?status=reserved", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Data reservations.PublicWishlistDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(payload.Data.Items) != 1 {
		t.Fatalf("expected 1 reserved item, got %d", len(payload.Data.Items))
	}
	if payload.Data.Items[0].Name != "Mug" {
		t.Fatalf("unexpected item %q", payload.Data.Items[0].Name)
	}

	req = httptest.NewRequest(http.MethodGet, "/public/wishlists/"+wishlistID.String()+"?status=bogus", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad filter, got %d", resp.Code)
	}
}

func TestPublicWishlistStreamSendsInitialSnapshot(t *testing.T) {
	wishlistID := uuid.New()
	hub := snapshots.NewHub(func(ctx context.Context, id uuid.UUID) (any, error) {
		return map[string]string{"id": id.String()}, nil
	}, nil, nil)
	router := publicRouter(&stubReservationService{}, newTestLedger(t), hub)

	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/public/wishlists/"+wishlistID.String()+"/stream", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	var sawSnapshot, sawData bool
	for i := 0; i < 8; i++ {
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "event: snapshot" {
			sawSnapshot = true
		}
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, wishlistID.String()) {
			sawData = true
		}
		if sawSnapshot && sawData {
			break
		}
	}
	if !sawSnapshot || !sawData {
		t.Fatalf("expected initial snapshot event, saw event=%v data=%v", sawSnapshot, sawData)
	}
}

func TestPublicWishlistBuildsViewerFromDeviceLedger(t *testing.T) {
	wishlistID := uuid.New()
	itemID := uuid.New()
	ledger := newTestLedger(t)
	if err := ledger.Record(context.Background(), "device-1", claims.Entry{
		ItemID:     itemID,
		WishlistID: wishlistID,
		ClaimToken: "claim-token",
		ReservedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	// A claim on some other wishlist must not leak into this viewer.
	if err := ledger.Record(context.Background(), "device-1", claims.Entry{
		ItemID:     uuid.New(),
		WishlistID: uuid.New(),
		ClaimToken: "other-token",
		ReservedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	svc := &stubReservationService{view: &reservations.PublicWishlistDTO{ID: wishlistID}}
	router := publicRouter(svc, ledger, nil)

	req := httptest.NewRequest(http.MethodGet, "/public/wishlists/"+wishlistID.String(), nil)
	req.Header.Set("X-Presently-Device", "device-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.lastViewer.ClaimedItems) != 1 {
		t.Fatalf("expected one claimed item in the viewer, got %d", len(svc.lastViewer.ClaimedItems))
	}
	if _, ok := svc.lastViewer.ClaimedItems[itemID]; !ok {
		t.Fatalf("expected the device's claim for this wishlist in the viewer")
	}
}
