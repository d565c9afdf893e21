// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/triadlab/triad/internal/auth"
	"github.com/triadlab/triad/internal/database"
	"github.com/triadlab/triad/internal/handlers"
	"github.com/triadlab/triad/internal/journal"
	"github.com/triadlab/triad/internal/middleware"
	"github.com/triadlab/triad/internal/room"
	"github.com/triadlab/triad/internal/voice"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := journal.ConnectRedis(); err != nil {
		// The journal is best effort; the server runs without it.
		logger.Warnf("redis journal unavailable: %v", err)
	}

	rooms := room.NewService(database.NewRoomStore(database.DB), logger)
	voiceSvc := voice.NewService(database.NewVoiceStore(database.DB), logger)
	srv := handlers.NewServer(rooms, voiceSvc, logger)

	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, logged(h))
	}

	// room endpoints
	handle("POST /api/rooms/create/public", srv.CreateRoomHandler(true))
	handle("POST /api/rooms/create/private", srv.CreateRoomHandler(false))
	handle("GET /api/rooms/public", srv.ListPublicRoomsHandler)
	handle("GET /api/rooms/available", srv.ListAvailableRoomsHandler)
	handle("GET /api/rooms/code/{roomCode}", srv.GetRoomHandler)
	handle("POST /api/rooms/join/code", srv.JoinByCodeHandler)
	handle("POST /api/rooms/join/{roomID}", srv.JoinByIDHandler)
	handle("POST /api/rooms/ready", srv.ReadyHandler)
	handle("POST /api/rooms/out", srv.LeaveRoomHandler)
	handle("POST /api/rooms/reset", srv.ResetRoomHandler)
	handle("POST /api/rooms/assign-roles/{roomCode}", srv.AssignRolesHandler)
	handle("GET /api/rooms/roles/{roomCode}", srv.RoleStatusHandler)
	handle("POST /api/rooms/ai-select", srv.SetAITypeHandler)
	handle("GET /api/rooms/ai-select", srv.GetAITypeHandler)
	handle("POST /api/rooms/ai-name", srv.SetAINameHandler)
	handle("GET /api/rooms/ai-name", srv.GetAINameHandler)

	// round choice endpoints
	handle("POST /api/rooms/choices/round", srv.SubmitRoundChoiceHandler)
	handle("POST /api/rooms/choices/confidence", srv.SubmitRoundConfidenceHandler)
	handle("POST /api/rooms/choices/consensus", srv.SubmitConsensusChoiceHandler)
	handle("POST /api/rooms/choices/consensus-confidence", srv.SubmitConsensusConfidenceHandler)
	handle("GET /api/rooms/choices/status", srv.ChoiceStatusHandler)

	// voice session endpoints
	handle("POST /api/voice/sessions", srv.CreateVoiceSessionHandler)
	handle("GET /api/voice/sessions/{sessionID}", srv.GetVoiceSessionHandler)
	handle("GET /api/voice/by-room/{roomCode}", srv.GetVoiceSessionByRoomHandler)
	handle("POST /api/voice/sessions/{sessionID}/join", srv.JoinVoiceSessionHandler)
	handle("POST /api/voice/sessions/{sessionID}/status", srv.UpdateVoiceStatusHandler)
	handle("POST /api/voice/sessions/{sessionID}/leave", srv.LeaveVoiceSessionHandler)
	handle("POST /api/voice/sessions/{sessionID}/recording/start", srv.StartRecordingHandler)
	handle("POST /api/voice/sessions/{sessionID}/recording/stop", srv.StopRecordingHandler)

	// stats and health
	handle("GET /health", srv.HealthHandler)
	handle("GET /api/stats/voice/sessions", srv.AllVoiceStatsHandler)
	handle("GET /api/stats/voice/sessions/{sessionID}", srv.VoiceSessionStatsHandler)
	handle("POST /api/stats/voice/sessions/{sessionID}/ping", srv.PingVoiceSessionHandler)
	handle("GET /api/stats/signaling/rooms/{roomCode}", srv.SignalingRoomHandler)

	// websockets
	handle("GET /ws/voice/{sessionID}", srv.VoiceWSHandler())
	handle("GET /ws/signaling/{roomCode}", srv.SignalingWSHandler())

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
