package server

import (
	"strconv"
	"strings"

	"tchat/protocol"
)

// dispatch executes one command for the session. It returns false when the
// connection should close (/bye).
func (s *Server) dispatch(session *Session, cmd protocol.Command) bool {
	switch cmd.Verb {
	case protocol.VerbList:
		session.Send(s.listConnected())

	case protocol.VerbMsg:
		if len(cmd.Args) < 2 {
			session.Send("Usage : /msg <utilisateur> <message>")
			break
		}
		s.sendPrivate(session, cmd.Args[0], cmd.Args[1])

	case protocol.VerbBye:
		// Direct write so the farewell beats the connection close.
		writeLine(session.conn, s.config.WriteTimeout, "Au revoir "+session.Name+" !")
		return false

	case protocol.VerbGroupCreate:
		s.handleGroupCreate(session, cmd.Args)

	case protocol.VerbGroupList:
		s.handleGroupList(session)

	case protocol.VerbGroupMembers:
		s.handleGroupMembers(session, cmd.Args)

	case protocol.VerbGroupAdd:
		if len(cmd.Args) < 2 {
			session.Send("Usage : /groupe-ajouter <nom> <utilisateur>")
			break
		}
		session.Send(s.groups.AddMember(cmd.Args[0], cmd.Args[1], session.Name))

	case protocol.VerbGroupRemove:
		if len(cmd.Args) < 2 {
			session.Send("Usage : /groupe-supprimer <nom> <utilisateur>")
			break
		}
		session.Send(s.groups.RemoveMember(cmd.Args[0], cmd.Args[1], session.Name))

	case protocol.VerbGroupPromote:
		if len(cmd.Args) < 2 {
			session.Send("Usage : /groupe-moderateur <nom> <utilisateur>")
			break
		}
		session.Send(s.groups.Promote(cmd.Args[0], cmd.Args[1], session.Name))

	case protocol.VerbGroupMsg:
		if len(cmd.Args) < 2 {
			session.Send("Usage : /groupe-msg <nom> <message>")
			break
		}
		s.groupMessage(session, cmd.Args[0], cmd.Args[1])

	case protocol.VerbMyGroups:
		s.handleMyGroups(session)

	default:
		session.Send("Commande inconnue : " + cmd.Raw)
	}
	return true
}

// sendWelcome sends the welcome line and the command-help listing after a
// successful handshake.
func (s *Server) sendWelcome(session *Session) {
	session.Send("Bienvenue " + session.Name + " !")
	session.Send("Commandes disponibles :")
	session.Send("- /list : voir qui est connecté")
	session.Send("- /msg <utilisateur> <message> : envoyer un message privé")
	session.Send("- /bye : quitter le chat")
	session.Send("COMMANDES GROUPES :")
	session.Send("- /groupe-creer <nom> <description> : créer un groupe")
	session.Send("- /groupe-liste : voir tous les groupes")
	session.Send("- /groupe-membres <nom> : voir les membres d'un groupe")
	session.Send("- /groupe-ajouter <nom> <utilisateur> : ajouter un utilisateur au groupe")
	session.Send("- /groupe-supprimer <nom> <utilisateur> : supprimer un utilisateur du groupe")
	session.Send("- /groupe-moderateur <nom> <utilisateur> : promouvoir un modérateur")
	session.Send("- /groupe-msg <nom> <message> : envoyer un message au groupe")
	session.Send("- /mes-groupes : voir mes groupes")
	session.Send("Tapez simplement votre message pour l'envoyer à tout le monde.")
}

func (s *Server) handleGroupCreate(session *Session, args []string) {
	if len(args) < 2 {
		session.Send("Usage : /groupe-creer <nom> <description>")
		return
	}
	name, description := args[0], args[1]

	if s.groups.Create(name, session.Name, description) {
		session.Send("Groupe '" + name + "' créé avec succès ! Vous êtes maintenant le créateur et modérateur.")
	} else {
		session.Send("Erreur : Un groupe avec ce nom existe déjà.")
	}
}

func (s *Server) handleGroupList(session *Session) {
	summaries := s.groups.ListAll()
	if len(summaries) == 0 {
		session.Send("Aucun groupe n'a été créé pour le moment.")
		return
	}

	session.Send("=== LISTE DES GROUPES ===")
	for _, summary := range summaries {
		session.Send("- " + summary.Name + " (" + strconv.Itoa(summary.MemberCount) + " membres) - " + summary.Description)
	}
}

func (s *Server) handleGroupMembers(session *Session, args []string) {
	if len(args) < 1 {
		session.Send("Usage : /groupe-membres <nom>")
		return
	}
	name := args[0]

	info, ok := s.groups.Info(name)
	if !ok {
		session.Send("Le groupe '" + name + "' n'existe pas.")
		return
	}

	session.Send("=== MEMBRES DU GROUPE '" + name + "' ===")
	session.Send("Créateur : " + info.Creator)
	session.Send("Modérateurs : " + strings.Join(info.Moderators, ", "))
	session.Send("Membres : " + strings.Join(info.Members, ", "))
	session.Send("Total : " + strconv.Itoa(info.Total) + " membres")
}

func (s *Server) handleMyGroups(session *Session) {
	memberships := s.groups.ListForUser(session.Name)
	if len(memberships) == 0 {
		session.Send("Vous n'êtes membre d'aucun groupe.")
		return
	}

	session.Send("=== VOS GROUPES ===")
	for _, membership := range memberships {
		role := "(Membre)"
		if membership.Moderator {
			role = "(Modérateur)"
		}
		session.Send("- " + membership.Name + " " + role + " - " + membership.Description)
	}
}
