package api_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bidwars/internal/api"
	"github.com/mcoot/bidwars/internal/api/apierr"
	"github.com/mcoot/bidwars/internal/api/response"
	"github.com/mcoot/bidwars/internal/factory"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		AuthService:    app.AuthService,
		RoomController: app.RoomController,
		GameController: app.GameController,
		BotService:     app.BotService,
		HubManager:     app.HubManager,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// createRoom creates a room with the given code and returns the host's membership
func (ts *testServer) createRoom(t *testing.T, code string) response.Membership {
	t.Helper()
	ts.app.MockRandom.QueueString(code)
	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]any{"player_name": "Host"}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Membership](t, rr)
}

func (ts *testServer) join(t *testing.T, code, name string) response.Membership {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/rooms/"+code+"/join", map[string]any{"player_name": name}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[response.Membership](t, rr)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rr.Code, rr.Body.String())
	resp := decode[apierr.ErrorResponse](t, rr)
	assert.Equal(t, code, resp.Error.Code)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[response.Health](t, rr).Status)
}

func TestCreateRoom(t *testing.T) {
	ts := newTestServer(t)

	m := ts.createRoom(t, "ROOM01")

	assert.Equal(t, "ROOM01", m.Room.Code)
	assert.Equal(t, string(model.PhaseWaiting), m.Room.Phase)
	assert.Equal(t, 3, m.Room.MaxRounds)
	assert.Nil(t, m.Room.CurrentItem)
	assert.NotEmpty(t, m.Token)
	assert.True(t, m.Player.IsHost)
	assert.Equal(t, int64(1000), m.Player.Capital)
	require.Len(t, m.Room.Players, 1)
}

func TestCreateRoomValidation(t *testing.T) {
	ts := newTestServer(t)

	t.Run("bad name", func(t *testing.T) {
		rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]any{"player_name": "<script>"}, "")
		assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeValidation)
	})
	t.Run("too many rounds", func(t *testing.T) {
		rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]any{"player_name": "Host", "max_rounds": 999}, "")
		assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeValidation)
	})
	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms", strings.NewReader("{"))
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)
		assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
	})
}

func TestJoinRoom(t *testing.T) {
	ts := newTestServer(t)
	ts.createRoom(t, "ROOM01")

	m := ts.join(t, "room01", "Guest")

	assert.False(t, m.Player.IsHost)
	assert.Len(t, m.Room.Players, 2)

	rr := ts.request(http.MethodPost, "/api/v1/rooms/NOPE00/join", map[string]any{"player_name": "Late"}, "")
	assertErrorCode(t, rr, http.StatusNotFound, apierr.CodeRoomNotFound)
}

func TestRoomRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)
	host := ts.createRoom(t, "ROOM01")
	other := ts.createRoom(t, "ROOM02")

	rr := ts.request(http.MethodGet, "/api/v1/rooms/ROOM01", nil, "")
	assertErrorCode(t, rr, http.StatusUnauthorized, apierr.CodeUnauthorized)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/ROOM01", nil, "not-a-token")
	assertErrorCode(t, rr, http.StatusUnauthorized, apierr.CodeUnauthorized)

	// A token for one room does not open another
	rr = ts.request(http.MethodGet, "/api/v1/rooms/ROOM01", nil, other.Token)
	assertErrorCode(t, rr, http.StatusForbidden, apierr.CodeSessionMismatch)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/ROOM01", nil, host.Token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStartRequiresHost(t *testing.T) {
	ts := newTestServer(t)
	ts.createRoom(t, "ROOM01")
	guest := ts.join(t, "ROOM01", "Guest")

	rr := ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/start", nil, guest.Token)
	assertErrorCode(t, rr, http.StatusForbidden, apierr.CodeNotHost)
}

func TestStartNeedsTwoPlayers(t *testing.T) {
	ts := newTestServer(t)
	host := ts.createRoom(t, "ROOM01")

	rr := ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/start", nil, host.Token)
	assertErrorCode(t, rr, http.StatusConflict, apierr.CodeInsufficientPlayers)
}

func TestFullRound(t *testing.T) {
	ts := newTestServer(t)
	host := ts.createRoom(t, "ROOM01")
	guest := ts.join(t, "ROOM01", "Guest")

	rr := ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/start", nil, host.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	started := decode[response.Room](t, rr)
	assert.Equal(t, string(model.PhaseBidding), started.Phase)
	assert.Equal(t, 1, started.CurrentRound)
	require.NotNil(t, started.CurrentItem)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/bids", map[string]any{"amount": 200.7}, host.Token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	receipt := decode[response.Receipt](t, rr)
	assert.Equal(t, int64(200), receipt.Amount)
	assert.False(t, receipt.Resolved)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/bids", map[string]any{"amount": 100}, host.Token)
	assertErrorCode(t, rr, http.StatusConflict, apierr.CodeDuplicateBid)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/bids", map[string]any{"amount": 300, "round": 1}, guest.Token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	receipt = decode[response.Receipt](t, rr)
	require.True(t, receipt.Resolved)
	assert.Equal(t, model.PlayerID(guest.Player.ID), receipt.Result.WinnerID)
	assert.Equal(t, int64(700), receipt.Result.WinnerGain)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/ROOM01/results", nil, guest.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	results := decode[response.Results](t, rr)
	require.Len(t, results.Rounds, 1)
	assert.Equal(t, 1, results.Rounds[0].Round)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/ROOM01/leaderboard", nil, host.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	board := decode[response.Leaderboard](t, rr)
	require.Len(t, board.Players, 2)
	assert.Equal(t, guest.Player.ID, board.Players[0].ID)
	assert.Equal(t, int64(1700), board.Players[0].Capital)
	assert.Equal(t, int64(800), board.Players[1].Capital)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/advance", nil, guest.Token)
	assertErrorCode(t, rr, http.StatusForbidden, apierr.CodeNotHost)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/advance", nil, host.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	next := decode[response.Room](t, rr)
	assert.Equal(t, 2, next.CurrentRound)
	assert.Equal(t, string(model.PhaseBidding), next.Phase)

	// Round 1 is closed now
	rr = ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/bids", map[string]any{"amount": 10, "round": 1}, host.Token)
	assertErrorCode(t, rr, http.StatusConflict, apierr.CodeStaleRound)
}

func TestBidValidation(t *testing.T) {
	ts := newTestServer(t)
	host := ts.createRoom(t, "ROOM01")
	ts.join(t, "ROOM01", "Guest")

	rr := ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/bids", map[string]any{"amount": 10}, host.Token)
	assertErrorCode(t, rr, http.StatusConflict, apierr.CodeNotAcceptingBids)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/start", nil, host.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/bids", map[string]any{}, host.Token)
	assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/bids", map[string]any{"amount": -5}, host.Token)
	assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeInvalidBidAmount)
}

func TestAddBot(t *testing.T) {
	ts := newTestServer(t)
	host := ts.createRoom(t, "ROOM01")

	rr := ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/bots", nil, host.Token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	bot := decode[response.Player](t, rr)
	assert.True(t, bot.IsAI)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/ROOM01/bots", map[string]any{"strategy": "psychic"}, host.Token)
	assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeValidation)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/ROOM01", nil, host.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[response.Room](t, rr).Players, 2)
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t)
	host := ts.createRoom(t, "ROOM01")

	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/rooms/ROOM01/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+host.Token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
	}()

	require.Equal(t, "connected", nextEvent(t, events))

	ts.join(t, "ROOM01", "Guest")
	assert.Equal(t, string(model.EventPlayerJoined), nextEvent(t, events))
}

func TestWebSocketAcceptsQueryToken(t *testing.T) {
	ts := newTestServer(t)
	host := ts.createRoom(t, "ROOM01")

	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/rooms/ROOM01/ws?token=" + host.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var frame struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "connected", frame.Type)

	ts.join(t, "ROOM01", "Guest")
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, string(model.EventPlayerJoined), frame.Type)
}

func nextEvent(t *testing.T, events <-chan string) string {
	t.Helper()
	select {
	case name := <-events:
		return name
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}
