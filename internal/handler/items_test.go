package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/finova-pos/api/internal/database"
	"github.com/finova-pos/api/internal/handler"
	"github.com/finova-pos/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Mock store ---

type mockItemStore struct {
	items map[uuid.UUID]database.Item // keyed by item ID
}

func newMockItemStore() *mockItemStore {
	return &mockItemStore{items: make(map[uuid.UUID]database.Item)}
}

func (m *mockItemStore) ListItems(_ context.Context, userID uuid.UUID) ([]database.Item, error) {
	var result []database.Item
	for _, i := range m.items {
		if i.UserID == userID && i.IsActive {
			result = append(result, i)
		}
	}
	return result, nil
}

func (m *mockItemStore) GetItem(_ context.Context, arg database.GetItemParams) (database.Item, error) {
	i, ok := m.items[arg.ID]
	if !ok || i.UserID != arg.UserID || !i.IsActive {
		return database.Item{}, pgx.ErrNoRows
	}
	return i, nil
}

func (m *mockItemStore) CreateItem(_ context.Context, arg database.CreateItemParams) (database.Item, error) {
	i := database.Item{
		ID:        uuid.New(),
		UserID:    arg.UserID,
		Name:      arg.Name,
		Price:     arg.Price,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.items[i.ID] = i
	return i, nil
}

func (m *mockItemStore) UpdateItem(_ context.Context, arg database.UpdateItemParams) (database.Item, error) {
	i, ok := m.items[arg.ID]
	if !ok || i.UserID != arg.UserID || !i.IsActive {
		return database.Item{}, pgx.ErrNoRows
	}
	i.Name = arg.Name
	i.Price = arg.Price
	i.UpdatedAt = time.Now()
	m.items[i.ID] = i
	return i, nil
}

func (m *mockItemStore) SoftDeleteItem(_ context.Context, arg database.SoftDeleteItemParams) (uuid.UUID, error) {
	i, ok := m.items[arg.ID]
	if !ok || i.UserID != arg.UserID || !i.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	i.IsActive = false
	m.items[i.ID] = i
	return i.ID, nil
}

func (m *mockItemStore) addItem(userID uuid.UUID, name, price string) database.Item {
	var n pgtype.Numeric
	_ = n.Scan(price)
	i := database.Item{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Price:     n,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.items[i.ID] = i
	return i
}

func setupItemRouter(store *mockItemStore) *chi.Mux {
	h := handler.NewItemHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/items", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestItemList_OnlyOwnActiveItems(t *testing.T) {
	store := newMockItemStore()
	userID := uuid.New()
	otherUser := uuid.New()

	store.addItem(userID, "Masala Dosa", "60.00")
	deleted := store.addItem(userID, "Old Item", "10.00")
	di := store.items[deleted.ID]
	di.IsActive = false
	store.items[deleted.ID] = di
	store.addItem(otherUser, "Foreign Item", "99.00")

	router := setupItemRouter(store)
	rr := doAuthRequest(t, router, "GET", "/items", nil, userID)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	items, ok := resp["items"].([]interface{})
	if !ok {
		t.Fatalf("expected items array, got %v", resp["items"])
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	first := items[0].(map[string]interface{})
	if first["name"] != "Masala Dosa" {
		t.Errorf("name: got %v, want Masala Dosa", first["name"])
	}
	if first["price"] != "60.00" {
		t.Errorf("price: got %v, want 60.00", first["price"])
	}
}

func TestItemCreate(t *testing.T) {
	store := newMockItemStore()
	router := setupItemRouter(store)
	userID := uuid.New()

	rr := doAuthRequest(t, router, "POST", "/items", map[string]string{
		"name":  "Filter Coffee",
		"price": "25",
	}, userID)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["name"] != "Filter Coffee" {
		t.Errorf("name: got %v", resp["name"])
	}
	// Prices normalize to two decimal places.
	if resp["price"] != "25.00" {
		t.Errorf("price: got %v, want 25.00", resp["price"])
	}
	if len(store.items) != 1 {
		t.Errorf("expected 1 stored item, got %d", len(store.items))
	}
}

func TestItemCreate_Validation(t *testing.T) {
	router := setupItemRouter(newMockItemStore())
	userID := uuid.New()

	cases := []map[string]string{
		{"price": "25.00"},                       // missing name
		{"name": "Coffee"},                       // missing price
		{"name": "Coffee", "price": "abc"},       // unparseable price
		{"name": "Coffee", "price": "-5.00"},     // negative price
	}
	for _, body := range cases {
		rr := doAuthRequest(t, router, "POST", "/items", body, userID)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %v: status got %d, want %d", body, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestItemGet_NotFound(t *testing.T) {
	router := setupItemRouter(newMockItemStore())

	rr := doAuthRequest(t, router, "GET", "/items/"+uuid.New().String(), nil, uuid.New())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestItemGet_OtherUsersItemHidden(t *testing.T) {
	store := newMockItemStore()
	item := store.addItem(uuid.New(), "Masala Dosa", "60.00")
	router := setupItemRouter(store)

	rr := doAuthRequest(t, router, "GET", "/items/"+item.ID.String(), nil, uuid.New())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestItemUpdate(t *testing.T) {
	store := newMockItemStore()
	userID := uuid.New()
	item := store.addItem(userID, "Masala Dosa", "60.00")
	router := setupItemRouter(store)

	rr := doAuthRequest(t, router, "PUT", "/items/"+item.ID.String(), map[string]string{
		"name":  "Masala Dosa Special",
		"price": "75.00",
	}, userID)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["name"] != "Masala Dosa Special" || resp["price"] != "75.00" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestItemDelete_SoftDeletes(t *testing.T) {
	store := newMockItemStore()
	userID := uuid.New()
	item := store.addItem(userID, "Masala Dosa", "60.00")
	router := setupItemRouter(store)

	rr := doAuthRequest(t, router, "DELETE", "/items/"+item.ID.String(), nil, userID)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	// Item stays in storage, just inactive.
	stored, ok := store.items[item.ID]
	if !ok {
		t.Fatal("item removed from storage, expected soft delete")
	}
	if stored.IsActive {
		t.Error("item still active after delete")
	}

	// Gone from the API.
	rr = doAuthRequest(t, router, "GET", "/items/"+item.ID.String(), nil, userID)
	if rr.Code != http.StatusNotFound {
		t.Errorf("deleted item fetch: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestItem_InvalidID(t *testing.T) {
	router := setupItemRouter(newMockItemStore())

	rr := doAuthRequest(t, router, "GET", "/items/not-a-uuid", nil, uuid.New())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestItem_Unauthenticated(t *testing.T) {
	router := setupItemRouter(newMockItemStore())

	rr := doRequest(t, router, "GET", "/items", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
