// Package ipc serves the music box over a line-oriented unix socket.
//
// Commands are "VERB ARGS" lines. Read-only verbs work on any connection;
// the first connection to send a control verb owns the widget until it
// disconnects, and only the owner receives EVENT lines.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"musicbox/internal/codec"
	"musicbox/internal/controller"
	"musicbox/internal/gesture"
	"musicbox/internal/loader"
	"musicbox/internal/log"
	"musicbox/pkg/spec"
)

const DefaultWatchInterval = 100 * time.Millisecond

// Analyses is the loader as seen by the TRACKS verb.
type Analyses interface {
	Analysis(id string) (codec.Analysis, bool)
}

type Options struct {
	Controller    *controller.Controller
	Analyses      Analyses
	Log           *log.Logger
	WatchInterval time.Duration
}

type Server struct {
	ctl   *controller.Controller
	an    Analyses
	log   *log.Logger
	watch time.Duration

	mu    sync.Mutex
	owner *conn
	conns map[*conn]struct{}
	ln    net.Listener
}

type conn struct {
	c   net.Conn
	wmu sync.Mutex

	watchMu   sync.Mutex
	watchStop chan struct{}
}

func (c *conn) send(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.c.Write([]byte(line + "\n"))
	return err
}

func NewServer(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = log.Discard()
	}
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = DefaultWatchInterval
	}
	return &Server{
		ctl:   opts.Controller,
		an:    opts.Analyses,
		log:   opts.Log,
		watch: opts.WatchInterval,
		conns: map[*conn]struct{}{},
	}
}

// ListenAndServe removes a stale socket file, listens on path and serves
// until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, path string) error {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	defer os.Remove(path)
	return s.Serve(ln)
}

// Serve accepts connections until ln is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warnf("accept: %v", err)
			continue
		}
		go s.ServeConn(c)
	}
}

// Close stops accepting and drops every connection.
func (s *Server) Close() {
	s.mu.Lock()
	ln := s.ln
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	for _, c := range conns {
		c.c.Close()
	}
}

// Broadcast sends ev to the owner, if any.
func (s *Server) Broadcast(ev controller.Event) {
	s.mu.Lock()
	o := s.owner
	s.mu.Unlock()
	if o == nil {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := o.send("EVENT " + string(b)); err != nil {
		s.log.Debugf("event dropped: %v", err)
	}
}

func (s *Server) isOwner(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner == c
}

func (s *Server) claimOwner(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == nil {
		s.owner = c
		s.log.Infof("control claimed by %s", c.c.RemoteAddr())
		return true
	}
	return s.owner == c
}

func (s *Server) releaseOwner(c *conn) {
	if !s.isOwner(c) {
		return
	}
	// reset the widget while c still holds it so the next owner starts idle
	s.ctl.CancelDrag()
	s.ctl.Stop()
	s.mu.Lock()
	if s.owner == c {
		s.owner = nil
	}
	s.mu.Unlock()
	s.log.Infof("control released")
}

// ServeConn runs the command loop of one connection.
func (s *Server) ServeConn(nc net.Conn) {
	c := &conn{c: nc}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.stopWatch(c)
		s.releaseOwner(c)
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		nc.Close()
	}()

	sc := bufio.NewScanner(nc)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		reply := s.handle(c, line)
		if err := c.send(reply); err != nil {
			return
		}
	}
}

func (s *Server) handle(c *conn, line string) string {
	fields := strings.Fields(line)
	cmd := strings.ToUpper(fields[0])
	args := fields[1:]

	switch cmd {
	case "ABOUT":
		return fmt.Sprintf("%s V.%s", spec.AppName, spec.Version)
	case "PING":
		return "Pong"
	case "WHOAMI":
		if s.isOwner(c) {
			return "OWNER"
		}
		return "OBSERVER"
	case "STATUS":
		return s.status()
	case "TRACKS":
		return s.tracks()
	}

	if !s.claimOwner(c) {
		return "ERR CONTROL_LOCKED"
	}

	switch cmd {
	case "KEY-RECT":
		v, ok := floats(args, 4)
		if !ok || v[2] <= 0 || v[3] <= 0 {
			return "ERR ARG"
		}
		s.ctl.Key().Mount(gesture.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]})
		return "OK"

	case "UNMOUNT":
		s.ctl.Key().Unmount()
		return "OK"

	case "PRESS":
		v, ok := floats(args, 2)
		if !ok {
			return "ERR ARG"
		}
		switch err := s.ctl.Press(gesture.Point{X: v[0], Y: v[1]}); {
		case errors.Is(err, gesture.ErrInvalidGestureTarget):
			return "IGNORED NO_KEY"
		case errors.Is(err, gesture.ErrAlreadyDragging):
			return "IGNORED DRAGGING"
		case err != nil:
			return "ERR INTERNAL"
		}
		return "OK"

	case "MOVE":
		v, ok := floats(args, 2)
		if !ok {
			return "ERR ARG"
		}
		if !s.ctl.Dragging() {
			return "IGNORED IDLE"
		}
		delta, clicked := s.ctl.Move(gesture.Point{X: v[0], Y: v[1]})
		if clicked {
			return fmt.Sprintf("OK %.2f CLICK", delta)
		}
		return fmt.Sprintf("OK %.2f", delta)

	case "RELEASE":
		if !s.ctl.Release() {
			return "IGNORED IDLE"
		}
		return "OK"

	case "SELECT":
		if len(args) != 1 {
			return "ERR ARG"
		}
		if err := s.ctl.Select(args[0]); err != nil {
			return "ERR UNKNOWN_TRACK"
		}
		return "OK"

	case "TOGGLE":
		return "OK " + s.ctl.Toggle().ID

	case "STOP":
		s.ctl.Stop()
		return "OK"

	case "WATCH":
		if len(args) != 1 {
			return "ERR ARG"
		}
		switch strings.ToLower(args[0]) {
		case "on":
			s.startWatch(c)
		case "off":
			s.stopWatch(c)
		default:
			return "ERR ARG"
		}
		return "OK"
	}
	return "ERR UNKNOWN"
}

type statusReply struct {
	controller.Snapshot
	Status string `json:"status"`
}

func (s *Server) status() string {
	snap := s.ctl.Snapshot()
	j, _ := json.Marshal(statusReply{Snapshot: snap, Status: controller.StatusLine(snap)})
	return string(j)
}

type trackReply struct {
	controller.TrackState
	Analysis *codec.Analysis `json:"analysis,omitempty"`
}

func (s *Server) tracks() string {
	var out []trackReply
	for _, t := range s.ctl.Snapshot().Tracks {
		r := trackReply{TrackState: t}
		if t.Status == loader.Ready && s.an != nil {
			if a, ok := s.an.Analysis(t.ID); ok {
				r.Analysis = &a
			}
		}
		out = append(out, r)
	}
	j, _ := json.Marshal(out)
	return string(j)
}

func (s *Server) startWatch(c *conn) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watchStop != nil {
		return
	}
	stop := make(chan struct{})
	c.watchStop = stop
	go func() {
		t := time.NewTicker(s.watch)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if err := c.send("EVENT " + s.snapshotEvent()); err != nil {
					return
				}
			}
		}
	}()
}

func (s *Server) stopWatch(c *conn) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watchStop != nil {
		close(c.watchStop)
		c.watchStop = nil
	}
}

type snapshotEvent struct {
	Kind string `json:"event"`
	controller.Snapshot
}

func (s *Server) snapshotEvent() string {
	j, _ := json.Marshal(snapshotEvent{Kind: "snapshot", Snapshot: s.ctl.Snapshot()})
	return string(j)
}

func floats(args []string, n int) ([]float64, bool) {
	if len(args) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
