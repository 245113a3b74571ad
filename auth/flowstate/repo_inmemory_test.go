package flowstate_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-prayer-journal/auth/flowstate"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	repo := flowstate.NewInMemoryRepo()
	now := time.Now()

	require.Error(t, repo.Upsert("", &flowstate.AuthFlowState{}))
	require.Error(t, repo.Upsert("s", nil))

	require.NoError(t, repo.Upsert("s1", &flowstate.AuthFlowState{Nonce: "n1", AppState: "/journal", CreatedAt: now}))

	got, err := repo.Get("s1")
	require.NoError(t, err)
	require.Equal(t, "n1", got.Nonce)
	require.Equal(t, "/journal", got.AppState)

	got.Nonce = "changed"
	again, err := repo.Get("s1")
	require.NoError(t, err)
	require.Equal(t, "n1", again.Nonce)

	require.NoError(t, repo.Delete("s1"))
	_, err = repo.Get("s1")
	require.Error(t, err)
	_, err = repo.Get("")
	require.Error(t, err)
}

func TestInMemoryRepo_DeleteExpired(t *testing.T) {
	repo := flowstate.NewInMemoryRepo()
	now := time.Now()

	require.NoError(t, repo.Upsert("old", &flowstate.AuthFlowState{CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Upsert("new", &flowstate.AuthFlowState{CreatedAt: now}))

	require.Equal(t, 1, repo.DeleteExpired(now.Add(-15*time.Minute)))
	_, err := repo.Get("old")
	require.Error(t, err)
	_, err = repo.Get("new")
	require.NoError(t, err)
}
