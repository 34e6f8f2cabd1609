package server

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"tchat/groups"
)

// broadcast delivers "<sender> : <body>" to every active session except the
// sender's own.
func (s *Server) broadcast(sender, body string) {
	line := sender + " : " + body
	for _, session := range s.registry.Sessions() {
		if session.Name != sender {
			session.Send(line)
		}
	}
}

// broadcastChat relays a chat line from the session and records it in the
// general history log.
func (s *Server) broadcastChat(session *Session, body string) {
	s.broadcast(session.Name, body)
	if err := s.store.AppendGeneral(time.Now(), session.Name, body); err != nil {
		s.logger.Error("appending general history failed", zap.Error(err))
	}
}

// sendPrivate delivers a private message to both recipient and sender when
// the recipient is online, or stores it in the offline mailbox otherwise.
// Never both.
func (s *Server) sendPrivate(session *Session, recipient, body string) {
	line := "[PRIVÉ] " + session.Name + " → " + recipient + " : " + body

	if target, ok := s.registry.Lookup(recipient); ok {
		target.Send(line)
		session.Send(line)
	} else {
		s.storeOffline(recipient, line)
		session.Send("Message stocké pour " + recipient + " (hors ligne)")
	}

	if err := s.store.AppendPrivate(time.Now(), session.Name, recipient, body); err != nil {
		s.logger.Error("appending private history failed", zap.Error(err))
	}
}

// storeOffline queues the formatted message for the recipient and persists
// the full mailbox.
func (s *Server) storeOffline(recipient, line string) {
	s.offlineMu.Lock()
	defer s.offlineMu.Unlock()

	s.offline[recipient] = append(s.offline[recipient], line)
	if err := s.store.SaveMailbox(s.offline); err != nil {
		s.logger.Error("saving mailbox failed", zap.Error(err))
	}
}

// flushMailbox delivers any pending messages to a freshly registered session
// in their original order, then removes the entry and persists the mailbox.
func (s *Server) flushMailbox(session *Session) {
	s.offlineMu.Lock()
	defer s.offlineMu.Unlock()

	pending := s.offline[session.Name]
	if len(pending) == 0 {
		return
	}

	session.Send("=== " + strconv.Itoa(len(pending)) + " message(s) en attente ===")
	for _, line := range pending {
		session.Send(line)
	}
	session.Send("=== Fin des messages ===")

	delete(s.offline, session.Name)
	if err := s.store.SaveMailbox(s.offline); err != nil {
		s.logger.Error("saving mailbox failed", zap.Error(err))
	}
}

// groupMessage relays "[<groupe>] <sender> : <body>" to the group's online
// members (sender excluded) and appends it to the group's history log.
func (s *Server) groupMessage(session *Session, groupName, body string) {
	targets, status := s.groups.RelayTargets(groupName, session.Name)
	switch status {
	case groups.RelayUnknownGroup:
		session.Send("Le groupe '" + groupName + "' n'existe pas.")
		return
	case groups.RelayInactive:
		session.Send("Le groupe '" + groupName + "' n'est plus actif.")
		return
	case groups.RelayNotMember:
		session.Send("Vous n'êtes pas membre du groupe '" + groupName + "'.")
		return
	}

	line := "[" + groupName + "] " + session.Name + " : " + body
	for _, member := range targets {
		if target, online := s.registry.Lookup(member); online {
			target.Send(line)
		}
	}

	if err := s.store.AppendGroup(time.Now(), groupName, session.Name, body); err != nil {
		s.logger.Error("appending group history failed", zap.Error(err))
	}
}

// listConnected formats the connected-users summary.
func (s *Server) listConnected() string {
	names := s.registry.Names()
	if len(names) == 0 {
		return "Personne n'est connecté pour le moment"
	}
	return "Utilisateurs connectés : " + strings.Join(names, ", ")
}
