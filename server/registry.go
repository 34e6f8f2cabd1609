package server

import (
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session is one named, active connection. The connection goroutine owns it;
// the registry and the messaging code only borrow references to deliver text.
// Outbound lines go through a buffered queue drained by a writer goroutine,
// so one wedged recipient never stalls delivery to the others.
type Session struct {
	Name        string
	ConnectedAt time.Time

	conn         net.Conn
	out          chan string
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	logger       *zap.Logger
}

func newSession(name string, conn net.Conn, queueSize int, writeTimeout time.Duration, logger *zap.Logger) *Session {
	s := &Session{
		Name:         name,
		ConnectedAt:  time.Now(),
		conn:         conn,
		out:          make(chan string, queueSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		logger:       logger,
	}
	go s.writeLoop()
	return s
}

// Send queues one line for delivery. Delivery is best effort: a full queue
// drops the line with a warning instead of blocking the caller.
func (s *Session) Send(line string) {
	select {
	case <-s.done:
	default:
		select {
		case s.out <- line:
		default:
			s.logger.Warn("outbound queue full, dropping line",
				zap.String("session", s.Name))
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case line := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
				s.logger.Warn("write failed, closing session",
					zap.String("session", s.Name), zap.Error(err))
				s.close()
				return
			}
		}
	}
}

// close stops the writer and closes the connection, which also breaks the
// connection's read loop.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Registry maps connected names to their sessions. Register is a single
// check-and-insert under the lock, so two concurrent handshakes for the same
// name can never both succeed.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register claims the name for the session. Returns false if the name is
// already taken.
func (r *Registry) Register(name string, session *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.sessions[name]; taken {
		return false
	}
	r.sessions[name] = session
	return true
}

// Unregister removes the name unconditionally.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, name)
}

// Lookup returns the session registered under name, if any.
func (r *Registry) Lookup(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[name]
	return session, ok
}

// Names returns a sorted snapshot of the connected names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sessions returns a snapshot of the registered sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
