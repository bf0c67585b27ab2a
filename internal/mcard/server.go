// Package mcard runs the carousel daemon: JSONL-framed JSON-RPC over
// local TCP, one line per request and response.
package mcard

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"mediacarousel/internal/version"
)

type Options struct {
	Listen string
	Logger *zap.Logger
}

type Server struct {
	opts Options
	h    *Handlers

	mu        sync.Mutex
	listener  net.Listener
	closeOnce sync.Once
	closed    chan struct{}
}

func NewServer(opts Options) *Server {
	if opts.Listen == "" {
		opts.Listen = "127.0.0.1:7437"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		opts:   opts,
		h:      NewHandlers(opts.Logger),
		closed: make(chan struct{}),
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Run() error {
	if s == nil {
		return fmt.Errorf("server is nil")
	}

	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.opts.Logger.Info("daemon listening", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() { close(s.closed) })

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	s.h.Close()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

func (s *Server) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	defer func() { _ = w.Flush() }()

	for {
		line, err := ReadOneLine(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.opts.Logger.Debug("connection read failed", zap.Error(err))
			}
			return
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = WriteOneLine(w, Response{
				JSONRPC: "2.0",
				ID:      json.RawMessage("null"),
				Error:   &ErrorObject{Code: -32700, Message: "parse error"},
			})
			_ = w.Flush()
			continue
		}

		if len(req.ID) == 0 {
			// Notification: no response.
			_ = s.dispatch(req)
			continue
		}

		resp := s.dispatch(req)
		_ = WriteOneLine(w, resp)
		_ = w.Flush()
	}
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		resp.Error = &ErrorObject{Code: -32600, Message: "invalid jsonrpc version"}
		return resp
	}

	ctx := context.Background()

	switch req.Method {
	case "ping":
		resp.Result = "pong"
	case "version":
		resp.Result = version.String()
	case "carousel.init":
		var p InitParams
		if err := unmarshalParams(req.Params, &p); err != nil {
			resp.Error = err
			return resp
		}
		out, err := s.h.Init(ctx, p)
		if err != nil {
			resp.Error = &ErrorObject{Code: -32000, Message: err.Error()}
			return resp
		}
		resp.Result = out
	case "carousel.next":
		var p ConsumerParams
		if err := requireConsumer(req.Params, &p); err != nil {
			resp.Error = err
			return resp
		}
		it, err := s.h.Next(ctx, p)
		if err != nil {
			resp.Error = &ErrorObject{Code: -32000, Message: err.Error()}
			return resp
		}
		resp.Result = it // null when the queue is dry
	case "carousel.pause":
		var p ConsumerParams
		if err := requireConsumer(req.Params, &p); err != nil {
			resp.Error = err
			return resp
		}
		if err := s.h.Pause(p); err != nil {
			resp.Error = &ErrorObject{Code: -32000, Message: err.Error()}
			return resp
		}
		resp.Result = true
	case "carousel.resume":
		var p ConsumerParams
		if err := requireConsumer(req.Params, &p); err != nil {
			resp.Error = err
			return resp
		}
		if err := s.h.Resume(p); err != nil {
			resp.Error = &ErrorObject{Code: -32000, Message: err.Error()}
			return resp
		}
		resp.Result = true
	case "carousel.detach":
		var p ConsumerParams
		if err := requireConsumer(req.Params, &p); err != nil {
			resp.Error = err
			return resp
		}
		if err := s.h.Detach(p); err != nil {
			resp.Error = &ErrorObject{Code: -32000, Message: err.Error()}
			return resp
		}
		resp.Result = true
	case "carousel.metadata":
		var p MetadataParams
		if err := unmarshalParams(req.Params, &p); err != nil {
			resp.Error = err
			return resp
		}
		if p.ConsumerID == "" {
			resp.Error = &ErrorObject{Code: -32602, Message: "consumer_id is required"}
			return resp
		}
		md, err := s.h.Metadata(p)
		if err != nil {
			resp.Error = &ErrorObject{Code: -32000, Message: err.Error()}
			return resp
		}
		resp.Result = md // null when the index has no row for the item
	case "carousel.status":
		var p ConsumerParams
		if err := requireConsumer(req.Params, &p); err != nil {
			resp.Error = err
			return resp
		}
		out, err := s.h.Status(p)
		if err != nil {
			resp.Error = &ErrorObject{Code: -32000, Message: err.Error()}
			return resp
		}
		resp.Result = out
	default:
		resp.Error = &ErrorObject{Code: -32601, Message: "method not found"}
	}
	return resp
}

func unmarshalParams(raw json.RawMessage, out any) *ErrorObject {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ErrorObject{Code: -32602, Message: "invalid params"}
	}
	return nil
}

func requireConsumer(raw json.RawMessage, p *ConsumerParams) *ErrorObject {
	if err := unmarshalParams(raw, p); err != nil {
		return err
	}
	if p.ConsumerID == "" {
		return &ErrorObject{Code: -32602, Message: "consumer_id is required"}
	}
	return nil
}
