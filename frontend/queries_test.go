package frontend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-query/arena"
	"github.com/wbrown/janus-query/queryrt"
	"github.com/wbrown/janus-query/sourcestore"
)

func newTestScheduler(t *testing.T, files map[FileID]string) (*queryrt.Scheduler, func()) {
	t.Helper()
	store, err := sourcestore.Open("")
	require.NoError(t, err)
	for id, src := range files {
		require.NoError(t, store.Put(id, []byte(src)))
	}
	s := queryrt.New(queryrt.WithEnv(&Environment{Source: store}))
	return s, func() {
		s.Close()
		store.Close()
	}
}

func TestLexFileSplitsIdentsAndNumbers(t *testing.T) {
	s, cleanup := newTestScheduler(t, map[FileID]string{1: "foo 42 bar"})
	defer cleanup()

	toks := queryrt.RequestAndTrampoline[LexFile, Tokens](s, LexFile{ID: 1}, queryrt.Serial)
	require.NoError(t, toks.Err)

	var kinds []TokenKind
	for _, tok := range toks.Items {
		if tok.Kind == TokenWhitespace {
			continue
		}
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(t, []TokenKind{TokenIdent, TokenNumber, TokenIdent}, kinds)
}

func TestLexFileMissingFileReportsErrInResult(t *testing.T) {
	s, cleanup := newTestScheduler(t, nil)
	defer cleanup()

	toks := queryrt.RequestAndTrampoline[LexFile, Tokens](s, LexFile{ID: 404}, queryrt.Serial)
	require.Error(t, toks.Err)
}

func TestParseFileBuildsNestedGroups(t *testing.T) {
	s, cleanup := newTestScheduler(t, map[FileID]string{1: "(foo (bar 1))"})
	defer cleanup()

	handle := queryrt.RequestAndTrampoline[ParseFile, arena.Shared[Tree]](s, ParseFile{ID: 1}, queryrt.Serial)
	tree, err := arena.TryGet(s.Arena(), handle)
	require.NoError(t, err)
	require.NoError(t, tree.Err)

	require.Len(t, tree.Root.Children, 1)
	outer := tree.Root.Children[0]
	require.Equal(t, NodeGroup, outer.Kind)
	require.Len(t, outer.Children, 2)
	require.Equal(t, "foo", outer.Children[0].Text)
	require.Equal(t, NodeGroup, outer.Children[1].Kind)
}

func TestDiagnosticsFlagsUndefinedSymbols(t *testing.T) {
	s, cleanup := newTestScheduler(t, map[FileID]string{1: "foo Bar baz Quux True"})
	defer cleanup()

	diags := queryrt.RequestAndTrampoline[Diagnostics, []Diagnostic](s, Diagnostics{ID: 1}, queryrt.Serial)
	require.Len(t, diags, 2)
	require.Equal(t, "undefined symbol \"Bar\"", diags[0].Message)
	require.Equal(t, "undefined symbol \"Quux\"", diags[1].Message)
}

func TestDiagnosticsMemoizesLexAndParse(t *testing.T) {
	s, cleanup := newTestScheduler(t, map[FileID]string{1: "a b c"})
	defer cleanup()

	_ = queryrt.RequestAndTrampoline[Diagnostics, []Diagnostic](s, Diagnostics{ID: 1}, queryrt.Serial)

	stats := s.Stats()
	for _, stat := range stats {
		if stat.Kind == lexFileName.String() {
			require.EqualValues(t, 1, stat.Misses, "LexFile should run exactly once despite ResolveFile re-requesting it")
		}
	}
}
