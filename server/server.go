package server

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tchat/groups"
	"tchat/models"
	"tchat/protocol"
	"tchat/store"
)

type Server struct {
	config   *Config
	store    *store.Store
	groups   *groups.Manager
	registry *Registry
	logger   *zap.Logger

	offlineMu sync.Mutex
	offline   map[string][]string // recipient -> pending formatted messages

	usersMu sync.Mutex
	users   []models.User

	listenerMu sync.Mutex
	listener   net.Listener
}

type Config struct {
	Port          int
	WriteTimeout  time.Duration
	OutboundQueue int
}

// New builds a server around the store and group directory, loading the
// offline mailbox and user directory from disk.
func New(st *store.Store, gm *groups.Manager, config *Config, logger *zap.Logger) (*Server, error) {
	if config.OutboundQueue <= 0 {
		config.OutboundQueue = 64
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}

	offline, err := st.LoadMailbox()
	if err != nil {
		return nil, err
	}
	users, err := st.LoadUsers()
	if err != nil {
		return nil, err
	}

	return &Server{
		config:   config,
		store:    st,
		groups:   gm,
		registry: NewRegistry(),
		logger:   logger,
		offline:  offline,
		users:    users,
	}, nil
}

// Start listens and serves until the listener is closed by Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.config.Port))
	if err != nil {
		return err
	}
	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	s.logger.Info("server started", zap.Int("port", s.config.Port))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		go s.handleConnection(conn)
	}
}

// Addr returns the listen address, once Start has bound it.
func (s *Server) Addr() net.Addr {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// handleConnection runs the session state machine: handshake, then the read
// loop, then guaranteed unregistration and close on every exit path.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	remoteAddr := conn.RemoteAddr().String()
	s.logger.Info("new connection", zap.String("remote", remoteAddr))

	reader := bufio.NewReader(conn)

	writeLine(conn, s.config.WriteTimeout, "Entrez votre nom d'utilisateur :")

	nameLine, err := reader.ReadString('\n')
	if err != nil {
		s.logger.Info("connection closed during handshake", zap.String("remote", remoteAddr))
		return
	}
	name := strings.TrimSpace(nameLine)

	if name == "" {
		writeLine(conn, s.config.WriteTimeout, "Nom pas valide. Connexion fermée.")
		return
	}

	session := newSession(name, conn, s.config.OutboundQueue, s.config.WriteTimeout, s.logger)
	if !s.registry.Register(name, session) {
		// The earlier session keeps the name; only this connection closes.
		writeLine(conn, s.config.WriteTimeout, "Ce nom d'utilisateur est déjà pris. Connexion refusée.")
		session.close()
		return
	}

	defer func() {
		s.registry.Unregister(name)
		session.close()
		s.broadcast("SYSTÈME", name+" s'est déconnecté")
		s.logger.Info("client disconnected",
			zap.String("session", name), zap.String("remote", remoteAddr))
	}()

	s.logger.Info("client connected",
		zap.String("session", name),
		zap.Int("total", s.registry.Count()))

	s.rememberUser(name, remoteAddr)
	s.broadcast("SYSTÈME", name+" vient de se connecter")
	s.flushMailbox(session)
	s.sendWelcome(session)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		if protocol.IsCommand(line) {
			if !s.dispatch(session, protocol.Parse(line)) {
				return
			}
			continue
		}
		s.broadcastChat(session, line)
	}
}

// rememberUser creates or refreshes the user's directory entry and rewrites
// the full set.
func (s *Server) rememberUser(name, remoteAddr string) {
	address := "127.0.0.1"
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
		address = host
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	found := false
	for i := range s.users {
		if s.users[i].Name == name {
			s.users[i].Address = address
			found = true
			break
		}
	}
	if !found {
		s.users = append(s.users, models.User{Name: name, Address: address})
	}

	if err := s.store.SaveUsers(s.users); err != nil {
		s.logger.Error("saving users failed", zap.Error(err))
	}
}

// Shutdown notifies every connected client, closes all sessions and stops the
// listener.
func (s *Server) Shutdown() {
	s.listenerMu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.listenerMu.Unlock()

	for _, session := range s.registry.Sessions() {
		// Written synchronously: close abandons anything still queued.
		writeLine(session.conn, s.config.WriteTimeout, "SYSTÈME : Le serveur s'arrête")
		session.close()
		s.registry.Unregister(session.Name)
	}
}

// Stats returns server statistics as a formatted string for the control
// socket.
func (s *Server) Stats() string {
	names := s.registry.Names()
	return "connections=" + strconv.Itoa(len(names)) + ",users=" + strings.Join(names, ";")
}

// writeLine is for the handshake phase, before a session and its writer
// goroutine exist.
func writeLine(conn net.Conn, timeout time.Duration, line string) {
	conn.SetWriteDeadline(time.Now().Add(timeout))
	conn.Write([]byte(line + "\n"))
}
