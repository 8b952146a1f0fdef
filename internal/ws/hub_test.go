package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := mockClient(hub, userID)

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[userID] == nil {
		t.Fatal("user room not created")
	}
	if !hub.rooms[userID][client] {
		t.Fatal("client not registered in user room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := mockClient(hub, userID)

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[userID] != nil {
		t.Fatal("user room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	user1 := uuid.New()
	user2 := uuid.New()

	client1 := mockClient(hub, user1)
	client2 := mockClient(hub, user2)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Broadcast to user1 only
	testPayload := json.RawMessage(`{"order_number":"FN-20260830-000001"}`)
	event := Event{
		Type:    "order.created",
		Payload: testPayload,
	}
	hub.BroadcastToUser(user1, event)

	// Check client1 receives the message
	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "order.created" {
			t.Errorf("expected type 'order.created', got '%s'", received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	// Check client2 does NOT receive the message
	select {
	case <-client2.send:
		t.Fatal("client2 should not have received another user's message")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToMultipleClientsOfSameUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client1 := mockClient(hub, userID)
	client2 := mockClient(hub, userID)
	client3 := mockClient(hub, userID)

	// Register all clients for the same owner
	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	// Broadcast event
	testPayload := json.RawMessage(`{"status":"completed"}`)
	event := Event{
		Type:    "order.completed",
		Payload: testPayload,
	}
	hub.BroadcastToUser(userID, event)

	// All three clients should receive the message
	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "order.completed" {
				t.Errorf("client%d: expected type 'order.completed', got '%s'", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestHubMultipleUsersIsolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	user1 := uuid.New()
	user2 := uuid.New()
	user3 := uuid.New()

	// Create 2 clients per user
	clients := map[uuid.UUID][]*Client{
		user1: {mockClient(hub, user1), mockClient(hub, user1)},
		user2: {mockClient(hub, user2), mockClient(hub, user2)},
		user3: {mockClient(hub, user3), mockClient(hub, user3)},
	}

	// Register all clients
	for _, clientList := range clients {
		for _, client := range clientList {
			hub.register <- client
		}
	}
	time.Sleep(10 * time.Millisecond)

	// Broadcast to user2 only
	event := Event{
		Type:    "order.printed",
		Payload: json.RawMessage(`{"user_id":"` + user2.String() + `"}`),
	}
	hub.BroadcastToUser(user2, event)

	// Only user2's clients should receive
	for userID, clientList := range clients {
		for i, client := range clientList {
			select {
			case msg := <-client.send:
				if userID != user2 {
					t.Fatalf("user %s client %d should not receive message", userID, i)
				}
				var received Event
				if err := json.Unmarshal(msg, &received); err != nil {
					t.Fatalf("unmarshal error: %v", err)
				}
				if received.Type != "order.printed" {
					t.Errorf("wrong event type: %s", received.Type)
				}
			case <-time.After(50 * time.Millisecond):
				if userID == user2 {
					t.Fatalf("user2 client %d should have received message", i)
				}
				// Expected for other users
			}
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client1 := mockClient(hub, userID)
	client2 := mockClient(hub, userID)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[userID]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[userID]))
	}
	hub.mu.RUnlock()

	// Unregister first client
	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[userID]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[userID]))
	}
	hub.mu.RUnlock()

	// Unregister second client
	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[userID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToUnknownUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Create a client for user1
	user1 := uuid.New()
	client1 := mockClient(hub, user1)
	hub.register <- client1
	time.Sleep(10 * time.Millisecond)

	// Broadcast to a user with no connected clients
	user2 := uuid.New()
	event := Event{
		Type:    "order.created",
		Payload: json.RawMessage(`{"test":"data"}`),
	}
	hub.BroadcastToUser(user2, event)

	// client1 should NOT receive anything
	select {
	case <-client1.send:
		t.Fatal("client should not receive another user's message")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}
