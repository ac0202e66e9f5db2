// Package frontend is a toy compiler pipeline expressed entirely as
// queryrt query kinds: LexFile -> ParseFile -> ResolveFile -> Diagnostics.
// It exists to give the runtime a real, if small, dependency graph to
// schedule — the lexical grammar and symbol resolution rules are
// deliberately minimal.
package frontend

import (
	"fmt"
	"sort"

	"github.com/wbrown/janus-query/arena"
	"github.com/wbrown/janus-query/queryrt"
	"github.com/wbrown/janus-query/sourcestore"
)

// FileID identifies a source file, shared with the sourcestore package so
// callers don't juggle two identifier types for the same file.
type FileID = sourcestore.FileID

// Environment is the value every query kind in this package expects from
// Scheduler.Env(). Construct a Scheduler with
// queryrt.WithEnv(&frontend.Environment{Source: store}) before submitting
// any of these query kinds.
type Environment struct {
	Source *sourcestore.Store
}

func envFor(s *queryrt.Scheduler) *Environment {
	env, ok := s.Env().(*Environment)
	if !ok || env == nil {
		panic("frontend: scheduler has no *frontend.Environment; construct it with queryrt.WithEnv(&frontend.Environment{Source: store})")
	}
	return env
}

var lexFileName = queryrt.NewName("frontend.LexFile")

// LexFile splits a source file's bytes into tokens.
type LexFile struct {
	ID FileID
}

func (LexFile) QueryName() queryrt.Name { return lexFileName }

func (q LexFile) Run(s *queryrt.Scheduler) Tokens {
	src, err := envFor(s).Source.Get(q.ID)
	if err != nil {
		return Tokens{FileID: q.ID, Err: fmt.Errorf("frontend: lex file %d: %w", q.ID, err)}
	}
	return Tokens{FileID: q.ID, Items: lex(string(src))}
}

var parseFileName = queryrt.NewName("frontend.ParseFile")

// ParseFile awaits LexFile and builds a parenthesis-nested expression
// tree, allocated in the scheduler's arena.
type ParseFile struct {
	ID FileID
}

func (ParseFile) QueryName() queryrt.Name { return parseFileName }

func (q ParseFile) Run(s *queryrt.Scheduler) arena.Shared[Tree] {
	toks := queryrt.Await(s, queryrt.Submit[LexFile, Tokens](s, LexFile{ID: q.ID}))
	if toks.Err != nil {
		return arena.AllocShared(s.Arena(), Tree{FileID: q.ID, Err: toks.Err})
	}
	root := parse(toks.Items)
	return arena.AllocShared(s.Arena(), Tree{FileID: q.ID, Root: root})
}

// Bindings is a trivial symbol table: each identifier's source position
// the first time it was seen, in traversal order.
type Bindings struct {
	FileID  FileID
	Symbols map[string]int
	Err     error
}

var resolveFileName = queryrt.NewName("frontend.ResolveFile")

// ResolveFile awaits ParseFile and walks the tree to build Bindings. It
// also re-requests LexFile, which Submit resolves from cache rather than
// re-running; the re-requested tokens are not used (symbol positions come
// from the tree's nodes).
type ResolveFile struct {
	ID FileID
}

func (ResolveFile) QueryName() queryrt.Name { return resolveFileName }

func (q ResolveFile) Run(s *queryrt.Scheduler) Bindings {
	treeHandle := queryrt.Await(s, queryrt.Submit[ParseFile, arena.Shared[Tree]](s, ParseFile{ID: q.ID}))
	tree, err := arena.TryGet(s.Arena(), treeHandle)
	if err != nil {
		// The handle was allocated by this same Scheduler's arena a moment
		// ago; a mismatch here means the runtime itself is broken.
		panic(fmt.Errorf("frontend: resolve file %d: %w", q.ID, err))
	}
	if tree.Err != nil {
		return Bindings{FileID: q.ID, Err: tree.Err}
	}

	// Memoized, not re-executed: this is Submit attaching to LexFile's
	// existing Cell rather than scheduling a second run.
	queryrt.Await(s, queryrt.Submit[LexFile, Tokens](s, LexFile{ID: q.ID}))

	symbols := map[string]int{}
	var walk func(n Node)
	walk = func(n Node) {
		if n.Kind == NodeIdent {
			if _, seen := symbols[n.Text]; !seen {
				symbols[n.Text] = n.Pos
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree.Root)

	return Bindings{FileID: q.ID, Symbols: symbols}
}

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is one problem found while resolving a file.
type Diagnostic struct {
	FileID   FileID
	Pos      int
	Severity Severity
	Message  string
}

// builtins are the only capitalized identifiers this toy resolver accepts
// without complaint.
var builtins = map[string]bool{"True": true, "False": true, "Nil": true}

var diagnosticsName = queryrt.NewName("frontend.Diagnostics")

// Diagnostics awaits ResolveFile and reports capitalized identifiers that
// aren't builtins as unresolved symbols. Its Result encodes its own
// failures — an empty, non-nil slice means "resolved cleanly", not
// "nothing ran".
type Diagnostics struct {
	ID FileID
}

func (Diagnostics) QueryName() queryrt.Name { return diagnosticsName }

func (q Diagnostics) Run(s *queryrt.Scheduler) []Diagnostic {
	bindings := queryrt.Await(s, queryrt.Submit[ResolveFile, Bindings](s, ResolveFile{ID: q.ID}))
	if bindings.Err != nil {
		return []Diagnostic{{FileID: q.ID, Severity: SeverityError, Message: bindings.Err.Error()}}
	}

	diags := make([]Diagnostic, 0)
	for name, pos := range bindings.Symbols {
		if name == "" || name[0] < 'A' || name[0] > 'Z' || builtins[name] {
			continue
		}
		diags = append(diags, Diagnostic{
			FileID:   q.ID,
			Pos:      pos,
			Severity: SeverityError,
			Message:  fmt.Sprintf("undefined symbol %q", name),
		})
	}
	sort.Slice(diags, func(i, j int) bool { return diags[i].Pos < diags[j].Pos })
	return diags
}
