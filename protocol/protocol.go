// Package protocol defines the line-oriented command grammar spoken between
// clients and the server: one UTF-8 line per message, lines starting with "/"
// are commands, everything else is broadcast chat.
package protocol

import "strings"

// Command verbs. Matching is case-insensitive.
const (
	VerbList         = "/list"
	VerbMsg          = "/msg"
	VerbBye          = "/bye"
	VerbGroupCreate  = "/groupe-creer"
	VerbGroupList    = "/groupe-liste"
	VerbGroupMembers = "/groupe-membres"
	VerbGroupAdd     = "/groupe-ajouter"
	VerbGroupRemove  = "/groupe-supprimer"
	VerbGroupMsg     = "/groupe-msg"
	VerbGroupPromote = "/groupe-moderateur"
	VerbMyGroups     = "/mes-groupes"
)

// maxTokens is the bounded field count per verb, the verb itself included.
// The final field soaks up the rest of the line, which is how message bodies
// and group descriptions keep their embedded spaces.
var maxTokens = map[string]int{
	VerbList:         2,
	VerbMsg:          3,
	VerbBye:          2,
	VerbGroupCreate:  3,
	VerbGroupList:    2,
	VerbGroupMembers: 3,
	VerbGroupAdd:     4,
	VerbGroupRemove:  4,
	VerbGroupMsg:     3,
	VerbGroupPromote: 4,
	VerbMyGroups:     2,
}

// Command is one parsed command line.
type Command struct {
	Verb string   // lowercased verb, e.g. "/msg"
	Raw  string   // verb as typed, for error reporting
	Args []string // remaining fields, last one may contain spaces
}

// IsCommand reports whether the line is a command rather than chat text.
func IsCommand(line string) bool {
	return strings.HasPrefix(line, "/")
}

// Known reports whether the verb is part of the grammar.
func Known(verb string) bool {
	_, ok := maxTokens[verb]
	return ok
}

// Parse tokenizes a command line into its verb and arguments, splitting on
// runs of spaces up to the verb's bounded field count.
func Parse(line string) Command {
	raw := line
	if i := strings.IndexByte(line, ' '); i >= 0 {
		raw = line[:i]
	}
	verb := strings.ToLower(raw)

	n, ok := maxTokens[verb]
	if !ok {
		n = 2
	}

	fields := SplitArgs(line, n)
	cmd := Command{Verb: verb, Raw: raw}
	if len(fields) > 1 {
		cmd.Args = fields[1:]
	}
	return cmd
}

// SplitArgs splits s on runs of spaces into at most max fields; the final
// field keeps the remainder of the line verbatim.
func SplitArgs(s string, max int) []string {
	s = strings.Trim(s, " ")
	if s == "" {
		return nil
	}

	var fields []string
	for s != "" {
		if len(fields) == max-1 {
			fields = append(fields, s)
			break
		}
		i := strings.IndexByte(s, ' ')
		if i < 0 {
			fields = append(fields, s)
			break
		}
		fields = append(fields, s[:i])
		s = strings.TrimLeft(s[i+1:], " ")
	}
	return fields
}
