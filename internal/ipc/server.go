package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"log/slog"

	"cinetag/internal/api"
	"cinetag/internal/daemon"
	"cinetag/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Cinetag", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String("impact", "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String("impact", "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun cinetag daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String("component", "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.MovieDir = status.MovieDir
	resp.TagDir = status.TagDir
	resp.StorePath = status.StorePath
	resp.LockPath = status.LockFilePath
	resp.Watching = status.Watching
	resp.JellyfinSync = status.JellyfinSync
	resp.LastOutcome = api.FromOutcome(status.LastOutcome)
	return nil
}

func (s *service) Reconcile(_ ReconcileRequest, resp *ReconcileResponse) error {
	s.log().Debug("reconcile requested")
	outcome, err := s.daemon.Reconcile(s.ctx)
	if err != nil {
		return err
	}
	resp.Outcome = api.FromOutcome(outcome)
	s.log().Info("reconcile completed via IPC",
		logging.String(logging.FieldEventType, "reconcile"),
		logging.Int("mutations", outcome.Mutations()))
	return nil
}

func (s *service) TagList(_ TagListRequest, resp *TagListResponse) error {
	tags, err := s.daemon.Tags(s.ctx)
	if err != nil {
		return err
	}
	assignments, err := s.daemon.Assignments(s.ctx)
	if err != nil {
		return err
	}
	resp.Tags = api.FromAssignments(assignments, tags, s.daemon.VisibleTag)
	return nil
}

func (s *service) TagCreate(req TagCreateRequest, resp *TagCreateResponse) error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("tag create requires a name")
	}
	name, err := s.daemon.CreateTag(s.ctx, req.Name)
	if err != nil {
		return err
	}
	resp.Name = name
	s.log().Info("tag created",
		logging.String(logging.FieldEventType, "tag_create"),
		logging.String("tag", name))
	return nil
}

func (s *service) TagDelete(req TagDeleteRequest, resp *TagDeleteResponse) error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("tag delete requires a name")
	}
	outcome, err := s.daemon.DeleteTag(s.ctx, req.Name)
	if err != nil {
		return err
	}
	resp.Outcome = api.FromOutcome(outcome)
	s.log().Info("tag deleted",
		logging.String(logging.FieldEventType, "tag_delete"),
		logging.String("tag", req.Name))
	return nil
}

func (s *service) MovieList(_ MovieListRequest, resp *MovieListResponse) error {
	entries, tagsByPath, err := s.daemon.Movies(s.ctx)
	if err != nil {
		return err
	}
	resp.Movies = api.FromInventory(entries, tagsByPath)
	return nil
}

func (s *service) Assign(req AssignRequest, resp *AssignResponse) error {
	outcome, err := s.daemon.Assign(s.ctx, req.Tag, req.Movie)
	if err != nil {
		return err
	}
	resp.Outcome = api.FromOutcome(outcome)
	return nil
}

func (s *service) Unassign(req UnassignRequest, resp *UnassignResponse) error {
	outcome, err := s.daemon.Unassign(s.ctx, req.Tag, req.Movie)
	if err != nil {
		return err
	}
	resp.Outcome = api.FromOutcome(outcome)
	return nil
}

func (s *service) Toggle(req ToggleRequest, resp *ToggleResponse) error {
	assigned, outcome, err := s.daemon.Toggle(s.ctx, req.Tag, req.Movie)
	if err != nil {
		return err
	}
	resp.Assigned = assigned
	resp.Outcome = api.FromOutcome(outcome)
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
