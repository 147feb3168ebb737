package main

import (
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// stubServer serves one downstream port, answering every POST with an
// outcome drawn from its Profile: 200 on success, 429 on simulated rate
// limiting, 503 on a generic simulated failure.
type stubServer struct {
	port    int
	profile Profile
	rng     *rand.Rand
	log     zerolog.Logger
}

func newStubServer(port int, profile Profile, log zerolog.Logger) *stubServer {
	return &stubServer{
		port:    port,
		profile: profile,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano() + int64(port))),
		log:     log.With().Int("port", port).Logger(),
	}
}

func (s *stubServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requestID, _ := io.ReadAll(io.LimitReader(r.Body, 256))
	defer r.Body.Close()

	latency := s.profile.Latency(s.rng)
	time.Sleep(latency)

	failed, rateLimited := s.profile.Outcome(s.rng)

	switch {
	case rateLimited:
		w.WriteHeader(http.StatusTooManyRequests)
		s.log.Debug().Str("request_id", string(requestID)).Dur("latency", latency).Msg("rate limited")
	case failed:
		w.WriteHeader(http.StatusServiceUnavailable)
		s.log.Debug().Str("request_id", string(requestID)).Dur("latency", latency).Msg("failed")
	default:
		w.WriteHeader(http.StatusOK)
		s.log.Debug().Str("request_id", string(requestID)).Dur("latency", latency).Msg("ok")
	}
}
