package realtime

import (
	"log"
	"sync"
)

// Registry tracks live push connections per user and user-level room
// membership per conversation. It is a constructed service instance, injected
// into request handlers and the event relay.
//
// Rooms are a broadcast-routing structure only: a user is in a room while they
// have a live connection watching that conversation. The durable delivery
// records, not the push channel, are the source of truth for message state.
type Registry struct {
	mu        sync.RWMutex
	conns     map[string]*Connection            // connection ID -> connection
	userConns map[string]map[string]*Connection // user ID -> connection ID -> connection
	rooms     map[string]map[string]struct{}    // conversation ID -> user IDs
	userRooms map[string]map[string]struct{}    // user ID -> conversation IDs
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]*Connection),
		userConns: make(map[string]map[string]*Connection),
		rooms:     make(map[string]map[string]struct{}),
		userRooms: make(map[string]map[string]struct{}),
	}
}

// AddConnection registers a live connection and starts its write loop.
// Multiple concurrent connections per user are normal (multi-device) and all
// of them receive broadcasts independently.
func (r *Registry) AddConnection(conn *Connection) {
	r.mu.Lock()
	r.conns[conn.ID] = conn
	byUser := r.userConns[conn.UserID]
	if byUser == nil {
		byUser = make(map[string]*Connection)
		r.userConns[conn.UserID] = byUser
	}
	byUser[conn.ID] = conn
	r.mu.Unlock()

	conn.Start()
}

// RemoveConnection deregisters a connection. When the user's last connection
// goes, the user leaves every room: room membership means "currently watching
// over a live connection".
func (r *Registry) RemoveConnection(conn *Connection) {
	r.mu.Lock()
	r.removeConnectionLocked(conn)
	r.mu.Unlock()
}

// JoinRoom subscribes the user to a conversation's realtime events. It does
// not touch connection state.
func (r *Registry) JoinRoom(userID, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.userConns[userID]) == 0 {
		// No live connection; nothing to route to.
		return
	}

	room := r.rooms[conversationID]
	if room == nil {
		room = make(map[string]struct{})
		r.rooms[conversationID] = room
	}
	room[userID] = struct{}{}

	memberships := r.userRooms[userID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		r.userRooms[userID] = memberships
	}
	memberships[conversationID] = struct{}{}
}

// LeaveRoom unsubscribes the user from a conversation's realtime events.
func (r *Registry) LeaveRoom(userID, conversationID string) {
	r.mu.Lock()
	r.leaveRoomLocked(userID, conversationID)
	r.mu.Unlock()
}

// SendToUser writes the event to every live connection of the user. A failed
// write is isolated: it is logged, that connection is deregistered, and
// delivery continues to the user's remaining connections. Zero connections is
// the normal recipient-offline case, not an error. Returns the number of
// successful connection writes.
func (r *Registry) SendToUser(userID string, ev Event) int {
	payload, err := ev.Marshal()
	if err != nil {
		log.Printf("realtime: encode %s event: %v", ev.Type, err)
		return 0
	}
	return r.sendPayload(userID, payload)
}

// BroadcastToRoom fans the event out to every member of the conversation's
// room, optionally excluding the originating user to avoid echo. Returns the
// total number of successful connection writes.
func (r *Registry) BroadcastToRoom(conversationID string, ev Event, excludeUserID string) int {
	payload, err := ev.Marshal()
	if err != nil {
		log.Printf("realtime: encode %s event: %v", ev.Type, err)
		return 0
	}

	r.mu.RLock()
	members := make([]string, 0, len(r.rooms[conversationID]))
	for userID := range r.rooms[conversationID] {
		if excludeUserID != "" && userID == excludeUserID {
			continue
		}
		members = append(members, userID)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, userID := range members {
		delivered += r.sendPayload(userID, payload)
	}
	return delivered
}

// SendKeepAlive writes a heartbeat event to every connection so intermediaries
// do not drop idle sockets. Connections that fail the write are deregistered
// exactly as on a normal send failure.
func (r *Registry) SendKeepAlive() {
	payload, err := NewEvent(EventKeepAlive, nil).Marshal()
	if err != nil {
		log.Printf("realtime: encode keep-alive event: %v", err)
		return
	}

	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(payload); err != nil {
			r.dropDeadConnection(conn, err)
		}
	}
}

// ConnectionCount reports live connections for the user.
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns[userID])
}

// RoomMembers reports current members of a conversation's room.
func (r *Registry) RoomMembers(conversationID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]string, 0, len(r.rooms[conversationID]))
	for userID := range r.rooms[conversationID] {
		members = append(members, userID)
	}
	return members
}

// Close terminates all tracked connections and clears registry state.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*Connection)
	r.userConns = make(map[string]map[string]*Connection)
	r.rooms = make(map[string]map[string]struct{})
	r.userRooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close(1001, "registry shutdown")
	}
}

func (r *Registry) sendPayload(userID string, payload []byte) int {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.userConns[userID]))
	for _, conn := range r.userConns[userID] {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(payload); err != nil {
			r.dropDeadConnection(conn, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Registry) dropDeadConnection(conn *Connection, err error) {
	log.Printf("realtime: dropping connection %s (user %s): %v", conn.ID, conn.UserID, err)
	conn.Close(1002, "write failed")
	r.RemoveConnection(conn)
}

func (r *Registry) removeConnectionLocked(conn *Connection) {
	if _, ok := r.conns[conn.ID]; !ok {
		return
	}
	delete(r.conns, conn.ID)

	byUser := r.userConns[conn.UserID]
	delete(byUser, conn.ID)
	if len(byUser) > 0 {
		return
	}
	delete(r.userConns, conn.UserID)

	for conversationID := range r.userRooms[conn.UserID] {
		r.leaveRoomLocked(conn.UserID, conversationID)
	}
}

func (r *Registry) leaveRoomLocked(userID, conversationID string) {
	room := r.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, userID)
	if len(room) == 0 {
		delete(r.rooms, conversationID)
	}
	if memberships, ok := r.userRooms[userID]; ok {
		delete(memberships, conversationID)
		if len(memberships) == 0 {
			delete(r.userRooms, userID)
		}
	}
}
