package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
)

// Hub maintains the live connections and their group membership.
//
// Membership is tracked in both directions: group name to members, and
// connection ID to joined groups. A connection leaves every group when it
// disconnects, and an emptied group is dropped.
type Hub struct {
	// clients maps connection IDs to live connections
	clients map[uuid.UUID]*Client

	// groups maps group names to their members
	groups map[string]map[*Client]struct{}

	// memberships maps connection IDs to the groups they joined
	memberships map[uuid.UUID]map[string]struct{}

	authorizer JoinAuthorizer
	closed     bool

	// mu protects the maps above and closed
	mu sync.RWMutex

	logger *slog.Logger
}

// NewHub creates a new WebSocket hub. A nil authorizer allows every join.
func NewHub(authorizer JoinAuthorizer, logger *slog.Logger) *Hub {
	if authorizer == nil {
		authorizer = AllowAllAuthorizer{}
	}
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		groups:      make(map[string]map[*Client]struct{}),
		memberships: make(map[uuid.UUID]map[string]struct{}),
		authorizer:  authorizer,
		logger:      logger.With("component", "websocket_hub"),
	}
}

// Connect registers a client with no group membership.
func (h *Hub) Connect(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		client.CloseSend()
		return apperrors.ErrConnectionClosed
	}

	h.clients[client.ID] = client
	h.memberships[client.ID] = make(map[string]struct{})

	h.logger.Info("client connected",
		"conn_id", client.ID,
		"user_id", client.UserID,
		"total_connections", len(h.clients),
	)
	return nil
}

// Join adds client to group after validating the name and asking the
// authorizer. Joining a group twice is a no-op.
func (h *Hub) Join(ctx context.Context, client *Client, group string) error {
	if !domain.IsValidGroup(group) {
		return apperrors.ErrInvalidGroup
	}
	if !h.isConnected(client) {
		return apperrors.ErrConnectionClosed
	}

	// The authorizer may hit the database, so it runs without the lock.
	if err := h.authorizer.AuthorizeJoin(ctx, client, group); err != nil {
		h.logger.Warn("join rejected",
			"conn_id", client.ID,
			"user_id", client.UserID,
			"group", group,
			"error", err,
		)
		return fmt.Errorf("join %s: %w", group, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.memberships[client.ID]
	if !ok || h.clients[client.ID] != client {
		return apperrors.ErrConnectionClosed
	}
	if _, already := joined[group]; already {
		return nil
	}

	members := h.groups[group]
	if members == nil {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[client] = struct{}{}
	joined[group] = struct{}{}

	h.logger.Debug("client joined group",
		"conn_id", client.ID,
		"group", group,
		"members", len(members),
	)
	return nil
}

// Disconnect removes client from every group and the connection table and
// closes its outbound queue. It is safe to call more than once.
func (h *Hub) Disconnect(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	h.mu.Unlock()

	// Always close: a client may be evicted before it was connected.
	client.CloseSend()

	if removed {
		h.logger.Info("client disconnected",
			"conn_id", client.ID,
			"user_id", client.UserID,
		)
	}
}

func (h *Hub) removeLocked(client *Client) bool {
	if h.clients[client.ID] != client {
		return false
	}

	for group := range h.memberships[client.ID] {
		if members, ok := h.groups[group]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.groups, group)
			}
		}
	}
	delete(h.memberships, client.ID)
	delete(h.clients, client.ID)
	return true
}

// EmitToGroup queues frame on every connection that is a member of group at
// the time of the call and returns how many accepted it. A member whose
// queue is full is disconnected instead of waited on.
func (h *Hub) EmitToGroup(group string, frame []byte) int {
	h.mu.RLock()
	members, ok := h.groups[group]
	if !ok {
		h.mu.RUnlock()
		h.logger.Debug("no members in group", "group", group)
		return 0
	}

	// Copy the member list to avoid holding the lock while sending
	targets := make([]*Client, 0, len(members))
	for client := range members {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	delivered := 0
	var slow []*Client
	for _, client := range targets {
		if client.enqueue(frame) {
			delivered++
			continue
		}
		slow = append(slow, client)
	}

	for _, client := range slow {
		h.logger.Warn("client send buffer full, disconnecting",
			"conn_id", client.ID,
			"user_id", client.UserID,
			"group", group,
		)
		h.Disconnect(client)
	}

	h.logger.Debug("emitted to group",
		"group", group,
		"delivered", delivered,
		"evicted", len(slow),
	)
	return delivered
}

// Close disconnects every client and refuses new connections.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.Disconnect(client)
	}
	h.logger.Info("hub closed", "disconnected", len(clients))
}

func (h *Hub) isConnected(client *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[client.ID] == client
}

// ConnectionCount returns the number of live connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupCount returns the number of groups with at least one member
func (h *Hub) GroupCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}

// MembersOf returns the number of connections in group
func (h *Hub) MembersOf(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// GroupsOf returns the sorted names of the groups client has joined
func (h *Hub) GroupsOf(client *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	joined := h.memberships[client.ID]
	groups := make([]string, 0, len(joined))
	for group := range joined {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}
