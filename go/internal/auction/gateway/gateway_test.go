package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/auctionroom/go/internal/auction/persistence"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"github.com/mcdev12/auctionroom/go/internal/catalogue"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshots map[string]protocol.RoomSnapshot

func (f fakeSnapshots) Snapshot(_ context.Context, code string) (protocol.RoomSnapshot, error) {
	snap, ok := f[code]
	if !ok {
		return protocol.RoomSnapshot{}, persistence.ErrNotFound
	}
	return snap, nil
}

func setupGateway(t *testing.T, snapshots SnapshotSource) (*Gateway, *httptest.Server) {
	t.Helper()
	cat, err := catalogue.Default()
	require.NoError(t, err)

	manager, err := room.NewManager(room.DefaultConfig(), cat)
	require.NoError(t, err)

	g := NewGateway(manager, snapshots, DefaultConfig())
	srv := httptest.NewServer(g.Routes())
	t.Cleanup(func() {
		srv.Close()
		g.Shutdown()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, manager.Shutdown(ctx))
	})
	return g, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/auction"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendMessage(t *testing.T, ws *websocket.Conn, msgType protocol.ClientMessageType, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(protocol.ClientEnvelope{Type: msgType, Data: raw}))
}

// readUntil skips events until one of type want arrives
func readUntil(t *testing.T, ws *websocket.Conn, want protocol.EventType) *protocol.Event {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var ev protocol.Event
		require.NoError(t, ws.ReadJSON(&ev), "waiting for %s", want)
		if ev.Type == want {
			return &ev
		}
	}
}

func readError(t *testing.T, ws *websocket.Conn) protocol.ErrorPayload {
	t.Helper()
	var payload protocol.ErrorPayload
	require.NoError(t, readUntil(t, ws, protocol.EventError).DecodeData(&payload))
	return payload
}

func createRoom(t *testing.T, ws *websocket.Conn, host, identity string) protocol.RoomCreatedPayload {
	t.Helper()
	sendMessage(t, ws, protocol.TypeCreateRoom, protocol.CreateRoom{HostName: host, IdentityToken: identity})
	var created protocol.RoomCreatedPayload
	require.NoError(t, readUntil(t, ws, protocol.EventRoomCreated).DecodeData(&created))
	return created
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestGateway_RoomFlow(t *testing.T) {
	_, srv := setupGateway(t, nil)
	host := dial(t, srv)
	guest := dial(t, srv)

	created := createRoom(t, host, "Alice", "id-alice")
	require.Len(t, created.RoomCode, 6)
	assert.NotEmpty(t, created.SessionID)
	assert.Equal(t, models.PhaseLobby, created.Room.Phase)
	require.NotEmpty(t, created.Room.State.Teams)
	teamID := created.Room.State.Teams[0].ID

	sendMessage(t, guest, protocol.TypeJoinRoom, protocol.JoinRoom{
		RoomCode:      strings.ToLower(created.RoomCode),
		DisplayName:   "Bob",
		IdentityToken: "id-bob",
	})
	var joined protocol.JoinedPayload
	require.NoError(t, readUntil(t, guest, protocol.EventJoinedRoom).DecodeData(&joined))
	assert.False(t, joined.IsHost)
	assert.Len(t, joined.Room.Participants, 2)

	sendMessage(t, host, protocol.TypeSelectTeam, protocol.SelectTeam{TeamID: teamID})
	var selected protocol.TeamSelectedPayload
	require.NoError(t, readUntil(t, guest, protocol.EventTeamSelected).DecodeData(&selected))
	assert.Equal(t, teamID, selected.TeamID)
	assert.Equal(t, "Alice", selected.DisplayName)

	sendMessage(t, guest, protocol.TypeSelectTeam, protocol.SelectTeam{TeamID: teamID})
	var taken protocol.TeamTakenPayload
	require.NoError(t, readUntil(t, guest, protocol.EventTeamTaken).DecodeData(&taken))
	assert.Equal(t, teamID, taken.TeamID)

	sendMessage(t, guest, protocol.TypeStartAuction, protocol.StartAuction{})
	assert.Equal(t, "not_host", readError(t, guest).Code)

	var listing struct {
		Rooms []protocol.RoomSummary `json:"rooms"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/rooms", &listing))
	require.Len(t, listing.Rooms, 1)
	assert.Equal(t, 2, listing.Rooms[0].Participants)
	assert.Equal(t, "Alice", listing.Rooms[0].HostName)

	var snap protocol.RoomSnapshot
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/rooms/"+created.RoomCode+"/state", &snap))
	assert.Equal(t, created.RoomCode, snap.Code)
}

func TestGateway_RejectsBadMessages(t *testing.T) {
	_, srv := setupGateway(t, nil)
	ws := dial(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "bad_request", readError(t, ws).Code)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"buy-everything"}`)))
	assert.Equal(t, "unknown_message", readError(t, ws).Code)

	sendMessage(t, ws, protocol.TypeBid, protocol.PlaceBid{TeamID: "MUM"})
	assert.Equal(t, "bad_request", readError(t, ws).Code)

	sendMessage(t, ws, protocol.TypeMarkUnsold, protocol.MarkUnsold{})
	assert.Equal(t, "not_in_room", readError(t, ws).Code)

	sendMessage(t, ws, protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: "ZZZZZZ", DisplayName: "Eve", IdentityToken: "id-eve"})
	assert.Equal(t, "room_not_found", readError(t, ws).Code)
}

func TestGateway_ListRoomsMessage(t *testing.T) {
	_, srv := setupGateway(t, nil)
	host := dial(t, srv)
	created := createRoom(t, host, "Alice", "")

	watcher := dial(t, srv)
	sendMessage(t, watcher, protocol.TypeListRooms, protocol.ListRooms{})
	var rooms protocol.RoomsPayload
	require.NoError(t, readUntil(t, watcher, protocol.EventRooms).DecodeData(&rooms))
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, created.RoomCode, rooms.Rooms[0].Code)
}

func TestGateway_LobbyDisconnectDropsSession(t *testing.T) {
	_, srv := setupGateway(t, nil)
	host := dial(t, srv)
	created := createRoom(t, host, "Alice", "id-alice")

	guest := dial(t, srv)
	sendMessage(t, guest, protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: created.RoomCode, DisplayName: "Bob", IdentityToken: "id-bob"})
	readUntil(t, guest, protocol.EventJoinedRoom)
	require.NoError(t, guest.Close())

	require.Eventually(t, func() bool {
		var listing struct {
			Rooms []protocol.RoomSummary `json:"rooms"`
		}
		return getJSON(t, srv.URL+"/api/rooms", &listing) == http.StatusOK &&
			len(listing.Rooms) == 1 && listing.Rooms[0].Participants == 1
	}, 5*time.Second, 20*time.Millisecond)

	again := dial(t, srv)
	sendMessage(t, again, protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: created.RoomCode, IdentityToken: "id-bob", IsReconnecting: true})
	assert.Equal(t, "session_expired", readError(t, again).Code)
}

func TestGateway_LeaveRoom(t *testing.T) {
	_, srv := setupGateway(t, nil)
	host := dial(t, srv)
	createRoom(t, host, "Alice", "id-alice")

	sendMessage(t, host, protocol.TypeLeaveRoom, protocol.LeaveRoom{})
	require.Eventually(t, func() bool {
		var listing struct {
			Rooms []protocol.RoomSummary `json:"rooms"`
		}
		return getJSON(t, srv.URL+"/api/rooms", &listing) == http.StatusOK && len(listing.Rooms) == 0
	}, 5*time.Second, 20*time.Millisecond)

	sendMessage(t, host, protocol.TypeStartAuction, protocol.StartAuction{})
	assert.Equal(t, "not_in_room", readError(t, host).Code)
}

func TestGateway_RoomState(t *testing.T) {
	archived := protocol.RoomSnapshot{Code: "OLD234", Phase: models.PhaseCompleted}
	_, srv := setupGateway(t, fakeSnapshots{"OLD234": archived})

	tests := []struct {
		name           string
		code           string
		expectedStatus int
	}{
		{name: "archived room from snapshot source", code: "old234", expectedStatus: http.StatusOK},
		{name: "unknown room", code: "NOPE99", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var snap protocol.RoomSnapshot
			status := getJSON(t, srv.URL+"/api/rooms/"+tt.code+"/state", &snap)
			require.Equal(t, tt.expectedStatus, status)
			if status == http.StatusOK {
				assert.Equal(t, models.PhaseCompleted, snap.Phase)
			}
		})
	}
}

func TestGateway_HealthAndInfo(t *testing.T) {
	_, srv := setupGateway(t, nil)
	dial(t, srv)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		var info map[string]any
		return getJSON(t, srv.URL+"/info", &info) == http.StatusOK && info["connections"] == float64(1)
	}, 5*time.Second, 20*time.Millisecond)
}
