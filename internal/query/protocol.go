package query

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// unsupportedCommand is the fixed payload returned for any command
// outside the recognized vocabulary.
const unsupportedCommand = "Command not supported"

// readTimeout bounds how long a connection may sit open before sending its
// one-line request; the protocol is one command per connection, so a
// slow or dead client should not pin a goroutine indefinitely.
const readTimeout = 30 * time.Second

// Server is the loopback stream listener: one TCP connection per
// command, a single UTF-8 line request, a structured response, then
// connection close.
type Server struct {
	handler *Handler
	log     zerolog.Logger
}

// NewServer builds a Server dispatching to handler.
func NewServer(handler *Handler, log zerolog.Logger) *Server {
	return &Server{handler: handler, log: log}
}

// Serve accepts connections on ln until it is closed, handling each on
// its own goroutine. It returns when ln.Accept returns an error (normally
// because the listener was closed during shutdown).
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	connID := uuid.New()
	log := s.log.With().Str("conn_id", connID.String()).Logger()

	conn.SetDeadline(time.Now().Add(readTimeout))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	line := strings.TrimSpace(scanner.Text())
	log.Info().Str("command", line).Msg("query received")

	resp := s.dispatch(line)
	if _, err := conn.Write(append(resp, '\n')); err != nil {
		log.Error().Err(err).Msg("writing query response failed")
	}
}

// dispatch runs one command against the handler and returns its JSON
// payload. Unknown commands get the fixed "Command not supported"
// payload, itself wrapped in a JSON object for a uniform response
// envelope.
func (s *Server) dispatch(line string) []byte {
	switch {
	case line == "modelled apps":
		return mustJSON(s.handler.ModelledApps())
	case line == "abnormal apps":
		return mustJSON(s.handler.AbnormalApps())
	case line == "abnormal apps --history":
		history, err := s.handler.AbnormalAppsHistory()
		if err != nil {
			return mustJSON(map[string]string{"error": err.Error()})
		}
		return mustJSON(history)
	case line == "modeller pause":
		s.handler.Pause()
		return mustJSON(map[string]string{"result": "paused"})
	case line == "modeller continue":
		s.handler.Continue()
		return mustJSON(map[string]string{"result": "continuing"})
	case line == "modeller status":
		return mustJSON(s.handler.Status())
	default:
		return mustJSON(map[string]string{"error": unsupportedCommand})
	}
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return b
}
