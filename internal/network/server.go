// Package network exposes chunk mesh generation over a websocket endpoint.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxelterrain/internal/codec"
	"voxelterrain/internal/config"
	"voxelterrain/internal/mesher"
	"voxelterrain/internal/terrain"
)

const (
	maxMessageSize  = 64 * 1024
	pendingMessages = 8
)

// Options tune a Server. Zero timeouts disable the corresponding deadline.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Limits bound the chunk parameters clients may request.
	Limits config.Limits
	Logger *log.Logger
}

// Server answers generate and reseed requests with chunk meshes.
type Server struct {
	manager  *terrain.Manager
	opts     Options
	logger   *log.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu     sync.RWMutex
	params mesher.Params
}

// NewServer creates a server whose chunk starts out as params.
func NewServer(manager *terrain.Manager, params mesher.Params, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "meshserver ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Server{
		manager: manager,
		opts:    opts,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		params: params,
	}
}

// Params returns the server's current chunk parameters.
func (s *Server) Params() mesher.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Handler returns the HTTP routes: /ws for the websocket protocol and
// /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebsocket)
	return mux
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("websocket server listening on %s", addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	// cancelled when the client goes away, aborting any build in flight
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	messages := make(chan []byte, pendingMessages)
	go s.readLoop(ctx, cancel, conn, messages)

	for {
		var data []byte
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			data = msg
		}

		env, err := Decode(data)
		if err != nil {
			s.logger.Printf("decode message from %s: %v", conn.RemoteAddr(), err)
			if err := s.send(conn, 0, MessageError, ErrorReply{Code: CodeBadRequest, Message: err.Error()}); err != nil {
				return
			}
			continue
		}

		replyType, reply := s.dispatch(ctx, env)
		if ctx.Err() != nil {
			s.logger.Printf("dropping %s reply to %s: connection closed", replyType, conn.RemoteAddr())
			return
		}
		if err := s.send(conn, env.Seq, replyType, reply); err != nil {
			s.logger.Printf("write reply to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

// readLoop feeds incoming frames to messages and cancels the connection
// context once reading fails.
func (s *Server) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, messages chan<- []byte) {
	defer cancel()
	defer close(messages)
	for {
		if s.opts.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("read message from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}
		select {
		case messages <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, env Envelope) (MessageType, any) {
	switch env.Type {
	case MessageGenerate:
		var req GenerateRequest
		if err := decodePayload(env.Payload, &req); err != nil {
			return MessageError, ErrorReply{Code: CodeBadRequest, Message: err.Error()}
		}
		params, err := s.opts.Limits.Apply(req.apply(s.Params()))
		if err != nil {
			return MessageError, errorReply(err)
		}
		var mesh *mesher.Mesh
		if req.Fresh {
			mesh, err = s.manager.Regenerate(ctx, params)
		} else {
			mesh, err = s.manager.Mesh(ctx, params)
		}
		if err != nil {
			return MessageError, errorReply(err)
		}
		return MessageMesh, meshReply(params, mesh)

	case MessageEvict:
		var req EvictRequest
		if err := decodePayload(env.Payload, &req); err != nil {
			return MessageError, ErrorReply{Code: CodeBadRequest, Message: err.Error()}
		}
		params, err := s.opts.Limits.Apply(req.apply(s.Params()))
		if err != nil {
			return MessageError, errorReply(err)
		}
		if err := s.manager.Evict(ctx, params); err != nil {
			return MessageError, errorReply(err)
		}
		return MessageEvicted, EvictedReply{Key: params.Key()}

	case MessageReseed:
		var req ReseedRequest
		if err := decodePayload(env.Payload, &req); err != nil {
			return MessageError, ErrorReply{Code: CodeBadRequest, Message: err.Error()}
		}
		mesh, params, err := s.manager.Reseed(ctx, s.Params(), req.Seed)
		if err != nil {
			return MessageError, errorReply(err)
		}
		s.mu.Lock()
		s.params = params
		s.mu.Unlock()
		s.logger.Printf("reseeded chunk with seed %d", req.Seed)
		return MessageMesh, meshReply(params, mesh)

	default:
		return MessageError, ErrorReply{Code: CodeBadRequest, Message: fmt.Sprintf("unknown message type %q", env.Type)}
	}
}

func (s *Server) send(conn *websocket.Conn, seq uint64, msgType MessageType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	data, err := Encode(Envelope{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Seq:       seq,
		Payload:   raw,
	})
	if err != nil {
		return err
	}
	if s.opts.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func decodePayload(raw json.RawMessage, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func meshReply(params mesher.Params, mesh *mesher.Mesh) MeshReply {
	min, max := mesh.Bounds()
	return MeshReply{
		Key:       params.Key(),
		Seed:      params.Seed,
		Vertices:  len(mesh.Vertices),
		Triangles: mesh.TriangleCount(),
		BoundsMin: min,
		BoundsMax: max,
		Mesh:      codec.MarshalMesh(mesh),
	}
}

func errorReply(err error) ErrorReply {
	code := CodeInternal
	switch {
	case errors.Is(err, mesher.ErrInvalidConfiguration):
		code = CodeInvalidConfiguration
	case errors.Is(err, mesher.ErrTooManyVertices):
		code = CodeTooManyVertices
	}
	return ErrorReply{Code: code, Message: err.Error()}
}
