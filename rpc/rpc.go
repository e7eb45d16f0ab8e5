package rpc

import (
	"net"
	"net/rpc"

	"github.com/itoloop/itoserver/logger"
	"github.com/itoloop/itoserver/services"
)

// Server manages the RPC listener. It exposes read-only room statistics for
// ops tooling; game traffic never goes through here.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// StatsService exposes room statistics over net/rpc. Methods follow the
// net/rpc signature: exported method, exported args, reply pointer, error.
type StatsService struct {
	resultsService *services.ResultsService
}

// NewStatsService creates a new StatsService.
func NewStatsService(rs *services.ResultsService) *StatsService {
	return &StatsService{resultsService: rs}
}

type GetRoomSummaryArgs struct {
	Code string
}

type GetRoomSummaryReply struct {
	Summary *services.RoomSummary
}

func (ss *StatsService) GetRoomSummary(args *GetRoomSummaryArgs, reply *GetRoomSummaryReply) error {
	summary, err := ss.resultsService.GetRoomSummary(args.Code)
	if err != nil {
		return err
	}
	reply.Summary = summary
	return nil
}
