package sourcestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(1, []byte("package main\n")))

	got, err := s.Get(1)
	require.NoError(t, err)
	require.Equal(t, "package main\n", string(got))
}

func TestGetMissingKeyErrors(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(999)
	require.Error(t, err)
}

func TestPutOverwrites(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(1, []byte("first")))
	require.NoError(t, s.Put(1, []byte("second")))

	got, err := s.Get(1)
	require.NoError(t, err)
	require.Equal(t, "second", string(got))
}
