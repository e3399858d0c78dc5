package main

import (
	"sort"
	"strings"

	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/translate"
)

// completionContext describes what kind of completion is appropriate.
type completionContext int

const (
	contextCommand      completionContext = iota // start of line or partial command
	contextEntity                                // entity name at the start of a query
	contextOperatorName                          // after "Entity." or ")."
	contextMember                                // after "c." inside a lambda
	contextEngine                                // after engine
	contextPlugin                                // after plugin
	contextPluginOff                             // after plugin off
)

var engineNames = func() []string {
	out := make([]string, len(storage.Dialects))
	for i, d := range storage.Dialects {
		out[i] = string(d)
	}
	return out
}()

// operatorNames lists the operators with a translation, in completion order.
var operatorNames = []string{
	string(translate.All), string(translate.Any), string(translate.Average), string(translate.Cast),
	string(translate.Contains), string(translate.Count), string(translate.Distinct),
	string(translate.First), string(translate.FirstOrDefault), string(translate.Last),
	string(translate.LastOrDefault), string(translate.LongCount), string(translate.Max),
	string(translate.Min), string(translate.OrderBy), string(translate.OrderByDescending),
	string(translate.Select), string(translate.Single), string(translate.SingleOrDefault),
	string(translate.Skip), string(translate.Sum), string(translate.Take),
	string(translate.ThenBy), string(translate.ThenByDescending), string(translate.Where),
}

// replCompleter implements readline's AutoCompleter interface.
type replCompleter struct {
	sess *Session
}

// Do returns completion candidates for the current line/cursor position.
// length is the number of chars from end of line[:pos] that form the prefix being completed.
// newLine contains the suffixes to append for each candidate.
func (c *replCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	lineStr := string(line[:pos])
	ctx, prefix := c.parseContext(lineStr)

	var candidates []string
	suffix := " "
	switch ctx {
	case contextCommand:
		candidates = c.completeCommands(prefix)
	case contextEntity:
		candidates = c.completeEntities(prefix)
		suffix = "."
	case contextOperatorName:
		candidates = filterPrefix(operatorNames, prefix)
		suffix = "("
	case contextMember:
		candidates = c.completeMembers(lineStr, prefix)
		suffix = ""
	case contextEngine:
		candidates = filterPrefix(engineNames, prefix)
	case contextPlugin:
		candidates = filterPrefix(append([]string{"off"}, c.sess.pluginNames()...), prefix)
	case contextPluginOff:
		candidates = filterPrefix(c.sess.plugins.names(), prefix)
	}

	for _, cand := range candidates {
		newLine = append(newLine, []rune(cand[len(prefix):]+suffix))
	}
	length = len([]rune(prefix))
	return
}

// parseContext examines the line up to cursor and determines what kind of
// completion is needed and the current prefix being typed.
func (c *replCompleter) parseContext(line string) (completionContext, string) {
	lower := strings.ToLower(line)

	for _, cmd := range c.sess.commands {
		if !strings.HasSuffix(cmd.prefix, " ") {
			continue // exact-match commands have no arg completion
		}
		if strings.HasPrefix(lower, cmd.prefix) && cmd.completer != nil {
			return cmd.completer(line[len(cmd.prefix):])
		}
	}
	if strings.Contains(line, ".") {
		return completeQueryArgs(line)
	}
	return contextCommand, strings.TrimSpace(line)
}

// completeCommands returns command and entity names matching the prefix;
// a bare entity name starts a query.
func (c *replCompleter) completeCommands(prefix string) []string {
	return append(filterPrefix(c.sess.commandNames(), prefix), c.completeEntities(prefix)...)
}

func (c *replCompleter) completeEntities(prefix string) []string {
	if c.sess.model == nil {
		return nil
	}
	var names []string
	for _, e := range c.sess.model.EntityTypes() {
		names = append(names, e.Name)
	}
	return filterPrefix(names, prefix)
}

// completeMembers completes "c.Na" with the properties of the query's root
// entity.
func (c *replCompleter) completeMembers(line, prefix string) []string {
	if c.sess.model == nil {
		return nil
	}
	e, ok := queryRoot(c.sess.model, line)
	if !ok {
		return nil
	}
	param, _, _ := strings.Cut(prefix, ".")
	var candidates []string
	for _, p := range e.Properties() {
		candidates = append(candidates, param+"."+p.Name)
	}
	sort.Strings(candidates)
	return filterPrefix(candidates, prefix)
}

// queryRoot returns the entity a query line starts with, skipping any
// command prefix and file path.
func queryRoot(m *model.Model, line string) (*model.EntityType, bool) {
	for _, f := range strings.Fields(line) {
		if !looksLikeQuery(f) {
			continue
		}
		root, _, _ := strings.Cut(f, ".")
		if e, ok := resolveEntity(m, root); ok {
			return e, true
		}
	}
	return nil, false
}

// filterPrefix returns items that start with prefix (case-insensitive).
func filterPrefix(items []string, prefix string) []string {
	if prefix == "" {
		result := make([]string, len(items))
		copy(result, items)
		return result
	}
	lowerPrefix := strings.ToLower(prefix)
	var result []string
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(item), lowerPrefix) {
			result = append(result, item)
		}
	}
	return result
}
