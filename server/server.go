// server/server.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/itoloop/itoserver/broadcast"
	"github.com/itoloop/itoserver/config"
	"github.com/itoloop/itoserver/logger"
	"github.com/itoloop/itoserver/models"
	"github.com/itoloop/itoserver/monitor"
	"github.com/itoloop/itoserver/network"
	"github.com/itoloop/itoserver/persistence"
	"github.com/itoloop/itoserver/room"
	itorpc "github.com/itoloop/itoserver/rpc"
	"github.com/itoloop/itoserver/services"
	"github.com/itoloop/itoserver/session"
	"github.com/itoloop/itoserver/timer"
)

// GameServer ties the transport surface together: REST endpoints for room
// operations, a websocket endpoint for snapshot subscriptions, the RPC admin
// listener and the clue-phase countdown.
type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	registry       *room.Registry
	sessionManager *session.Manager
	gateway        *broadcast.Gateway
	resultsService *services.ResultsService
	rpcServer      *itorpc.Server
	timerManager   *timer.TimerManager
	monitor        *monitor.Monitor
	defaults       config.GameConfig
	httpServer     *http.Server
	shutdownChan   chan struct{}

	// clueTimers maps room code to the pending countdown task, so a manual
	// advance cancels the scheduled one.
	clueTimers map[string]int64
	timerMutex sync.Mutex
}

func NewGameServer(cfg *config.Config, repo persistence.Repository, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		sessionManager: session.NewManager(),
		timerManager:   timer.NewTimerManager(),
		monitor:        mon,
		defaults:       cfg.Game,
		shutdownChan:   make(chan struct{}),
		clueTimers:     make(map[string]int64),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.gateway = broadcast.NewGateway(s.sessionManager)
	s.registry = room.NewRegistry(repo, s.gateway)
	s.resultsService = services.NewResultsService(repo)

	rpcServer, err := itorpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(itorpc.NewStatsService(s.resultsService))

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.instrument(s.routes()),
	}

	logger.Log.Infof("Game server listening on %s", s.addr)
	return s.httpServer.ListenAndServe()
}

func (s *GameServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms/{code}", s.handleGetRoom)
	mux.HandleFunc("DELETE /api/rooms/{code}", s.handleDeleteRoom)
	mux.HandleFunc("GET /api/rooms/{code}/results", s.handleResults)
	mux.HandleFunc("POST /api/rooms/{code}/join", s.handleJoin)
	mux.HandleFunc("POST /api/rooms/{code}/ready", s.handleReady)
	mux.HandleFunc("POST /api/rooms/{code}/start", s.handleStart)
	mux.HandleFunc("POST /api/rooms/{code}/advance", s.handleAdvance)
	mux.HandleFunc("POST /api/rooms/{code}/clue", s.handleClue)
	mux.HandleFunc("POST /api/rooms/{code}/position", s.handlePosition)
	mux.HandleFunc("POST /api/rooms/{code}/leave", s.handleLeave)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// instrument counts every request and records its latency.
func (s *GameServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.monitor.IncOperations()
		next.ServeHTTP(w, r)
		s.monitor.ObserveOperationLatency(time.Since(start))
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncConnectedClients()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecConnectedClients()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.LastActive = time.Now()
	case network.MsgTypeSubscribe:
		s.handleSubscribe(sess, packet)
	case network.MsgTypeUnsubscribe:
		sess.Unsubscribe()
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

type subscribeRequest struct {
	DeviceID string `json:"device_id"`
	RoomCode string `json:"room_code"`
}

// handleSubscribe binds the session to a room and answers with the current
// snapshot so a late subscriber does not wait for the next broadcast.
func (s *GameServer) handleSubscribe(sess *session.Session, packet *network.Packet) {
	var req subscribeRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed subscribe payload")
		return
	}

	rm, err := s.registry.GetRoom(req.RoomCode)
	if err != nil {
		s.sendError(sess, "room not found")
		return
	}

	sess.Subscribe(req.DeviceID, rm.Code())
	logger.Log.Infof("Session %s subscribed to room %s", sess.GetID(), rm.Code())

	data, err := json.Marshal(rm.SnapshotFor(req.DeviceID))
	if err != nil {
		logger.Log.Errorf("Failed to marshal snapshot for room %s: %v", rm.Code(), err)
		return
	}
	sess.Send(network.MsgTypeSnapshot, data)
}

func (s *GameServer) sendError(sess *session.Session, msg string) {
	data, _ := json.Marshal(map[string]string{"error": msg})
	sess.Send(network.MsgTypeError, data)
}

// syncClueTimer reconciles the countdown with the room's phase: entering
// clues arms a one-shot task for the clue budget, leaving clues disarms it.
func (s *GameServer) syncClueTimer(rm *room.Room) {
	snap := rm.Snapshot()
	code := snap.Room.Code

	s.timerMutex.Lock()
	defer s.timerMutex.Unlock()

	if id, ok := s.clueTimers[code]; ok {
		s.timerManager.RemoveTimer(id)
		delete(s.clueTimers, code)
	}
	if snap.Room.Status != models.PhaseClues {
		return
	}

	id := s.timerManager.AddTimer(time.Duration(snap.Room.ClueTime)*time.Second, 0, func() {
		s.expireCluePhase(rm)
	})
	s.clueTimers[code] = id
}

// expireCluePhase fires when the clue budget elapses. It advances the phase
// the same way a host request would, preconditions included, so a room with
// missing clues simply stays put.
func (s *GameServer) expireCluePhase(rm *room.Room) {
	s.timerMutex.Lock()
	delete(s.clueTimers, rm.Code())
	s.timerMutex.Unlock()

	host, ok := rm.HostDeviceID()
	if !ok {
		logger.Log.Warnf("Clue countdown fired for hostless room %s", rm.Code())
		return
	}
	if err := rm.AdvancePhase(host); err != nil {
		logger.Log.Infof("Clue countdown for room %s did not advance: %v", rm.Code(), err)
		return
	}
	logger.Log.Infof("Clue countdown advanced room %s", rm.Code())
}

func (s *GameServer) dropClueTimer(code string) {
	s.timerMutex.Lock()
	defer s.timerMutex.Unlock()
	if id, ok := s.clueTimers[code]; ok {
		s.timerManager.RemoveTimer(id)
		delete(s.clueTimers, code)
	}
}
