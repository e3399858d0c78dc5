package main

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// commandEntry maps a REPL prefix to its handler and optional tab-completer.
type commandEntry struct {
	prefix    string
	handler   func(args string) error
	completer func(args string) (completionContext, string) // nil = no arg completion
	hidden    bool                                          // excluded from commandNames()
}

// initCommands builds the command registry and sorts by prefix length descending.
func (s *Session) initCommands() {
	s.commands = []commandEntry{
		// --- display ---
		{prefix: "help", handler: func(_ string) error { s.cmdHelp(); return nil }},
		{prefix: "status", handler: func(_ string) error { s.cmdStatus(); return nil }},
		{prefix: "format", handler: func(_ string) error { return s.cmdFormat() }},

		// --- queries ---
		{prefix: "explain ", handler: func(a string) error { return s.cmdExplain(a) }, completer: completeQueryArgs},
		{prefix: "run ", handler: func(a string) error { return s.cmdRun(a) }, completer: completeQueryArgs},
		{prefix: "exec ", handler: func(a string) error { return s.cmdRun(a) }, completer: completeQueryArgs, hidden: true},
		{prefix: "dot ", handler: func(a string) error { return s.cmdDot(a) }, completer: completeDotArgs},
		{prefix: "dot", handler: func(_ string) error { return errors.New("usage: dot <filepath> <query>") }},

		// --- model ---
		{prefix: "load ", handler: func(a string) error { return s.cmdLoad(a) }},
		{prefix: "entities", handler: func(_ string) error { return s.cmdEntities() }},
		{prefix: "describe ", handler: func(a string) error { return s.cmdDescribe(a) }, completer: completeEntityArgs},
		{prefix: "desc ", handler: func(a string) error { return s.cmdDescribe(a) }, completer: completeEntityArgs, hidden: true},
		{prefix: "introspect", handler: func(_ string) error { return s.cmdIntrospect() }},

		// --- database connectivity ---
		{prefix: "connect ", handler: func(a string) error { return s.cmdConnect(a) }},
		{prefix: "connect", handler: func(_ string) error { return s.cmdConnect("") }},
		{prefix: "disconnect", handler: func(_ string) error { return s.cmdDisconnect() }},

		// --- engine / plugins ---
		{prefix: "engine ", handler: func(a string) error { return s.cmdEngine(a) }, completer: completeEngineArgs},
		{prefix: "plugin ", handler: func(a string) error { return s.cmdPlugin(a) }, completer: completePluginArgs},
		{prefix: "plugins", handler: func(_ string) error { s.cmdPlugins(); return nil }},
	}

	// Longest prefixes match first.
	sort.SliceStable(s.commands, func(i, j int) bool {
		return len(s.commands[i].prefix) > len(s.commands[j].prefix)
	})
}

// commandNames derives the command name list from the registry for tab completion.
func (s *Session) commandNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, cmd := range s.commands {
		if cmd.hidden {
			continue
		}
		name := strings.TrimRight(cmd.prefix, " ")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	// exit/quit are handled by the REPL loop, not Execute().
	for _, extra := range []string{"exit", "quit"} {
		if !seen[extra] {
			names = append(names, extra)
		}
	}
	sort.Strings(names)
	return names
}

// --- Shared completion helpers ---

// completeQueryArgs completes a query line: the entity at the start, an
// operator after the root or a closing parenthesis, and members after a
// lambda parameter's dot.
func completeQueryArgs(args string) (completionContext, string) {
	if !strings.ContainsAny(args, ".( ") {
		return contextEntity, args
	}
	if i := strings.LastIndexByte(args, '.'); i >= 0 {
		before, tail := args[:i], args[i+1:]
		if !strings.ContainsAny(tail, "(), ") && (strings.HasSuffix(before, ")") || isIdent(before)) {
			return contextOperatorName, tail
		}
	}
	if last := lastQueryToken(args); strings.Contains(last, ".") {
		return contextMember, last
	}
	return contextCommand, ""
}

func isIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isIdentRune(s[i]) {
			return false
		}
	}
	return s != ""
}

// lastQueryToken returns the trailing run of identifier characters and
// dots, such as "c.Na".
func lastQueryToken(s string) string {
	i := len(s)
	for i > 0 && (isIdentRune(s[i-1]) || s[i-1] == '.') {
		i--
	}
	return s[i:]
}

// completeDotArgs skips the file path, then completes the query.
func completeDotArgs(args string) (completionContext, string) {
	_, query, ok := strings.Cut(args, " ")
	if !ok {
		return contextCommand, ""
	}
	return completeQueryArgs(query)
}

func completeEntityArgs(args string) (completionContext, string) {
	return contextEntity, strings.TrimSpace(args)
}

func completeEngineArgs(args string) (completionContext, string) {
	return contextEngine, strings.TrimSpace(args)
}

// completePluginArgs completes plugin names, or after "off" the names of
// enabled plugins.
func completePluginArgs(args string) (completionContext, string) {
	if strings.HasPrefix(strings.ToLower(args), "off ") {
		return contextPluginOff, strings.TrimSpace(args[4:])
	}
	arg := strings.TrimSpace(args)
	if !strings.Contains(arg, " ") {
		return contextPlugin, arg
	}
	return contextCommand, ""
}
