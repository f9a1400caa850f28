package session_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/todochat/internal/db"
	"github.com/tgienger/todochat/internal/models"
	"github.com/tgienger/todochat/internal/session"
)

var testUser = models.User{ID: 7, Email: "ada@example.com", Name: "Ada"}

func TestStoreAndClear(t *testing.T) {
	backend := session.NewMemoryBackend()
	s := session.New(backend, nil)

	assert.False(t, s.IsAuthenticated())
	_, ok := s.User()
	assert.False(t, ok)

	s.Store("tok-1", testUser)

	assert.True(t, s.IsAuthenticated())
	token, ok := s.Token()
	require.True(t, ok)
	assert.Equal(t, "tok-1", token)
	user, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, testUser, user)

	raw, _ := backend.GetSetting(session.KeyUser)
	assert.JSONEq(t, `{"id":7,"email":"ada@example.com","name":"Ada"}`, raw)

	s.Clear()
	assert.False(t, s.IsAuthenticated())
	_, ok = s.User()
	assert.False(t, ok)
}

func TestAuthenticatedFollowsTokenOnly(t *testing.T) {
	s := session.New(session.NewMemoryBackend(), nil)
	s.SetUser(testUser)
	assert.False(t, s.IsAuthenticated())

	s.SetToken("tok")
	assert.True(t, s.IsAuthenticated())
}

func TestDetachedIsNoop(t *testing.T) {
	s := session.Detached()
	s.Store("tok", testUser)

	assert.False(t, s.IsAuthenticated())
	_, ok := s.Token()
	assert.False(t, ok)
	_, ok = s.User()
	assert.False(t, ok)
	s.Clear()
}

func TestCorruptUserReadsAbsent(t *testing.T) {
	backend := session.NewMemoryBackend()
	require.NoError(t, backend.SetSetting(session.KeyUser, "{not json"))

	s := session.New(backend, nil)
	_, ok := s.User()
	assert.False(t, ok)
}

type failingBackend struct{}

func (failingBackend) GetSetting(string) (string, error) { return "", errors.New("disk gone") }
func (failingBackend) SetSetting(string, string) error   { return errors.New("disk gone") }
func (failingBackend) DeleteSetting(string) error        { return errors.New("disk gone") }

func TestBackendFailuresReadAsAbsent(t *testing.T) {
	s := session.New(failingBackend{}, nil)
	s.Store("tok", testUser)
	assert.False(t, s.IsAuthenticated())
	s.Clear()
}

func TestPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := db.New(path)
	require.NoError(t, err)
	session.New(first, nil).Store("tok-db", testUser)
	require.NoError(t, first.Close())

	second, err := db.New(path)
	require.NoError(t, err)
	defer second.Close()

	s := session.New(second, nil)
	assert.True(t, s.IsAuthenticated())
	user, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, testUser, user)
}
