package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnv(t *testing.T) {
	var env *Env
	require.NotPanics(t, func() { env = NewEnv(t) }, "services reject the test logger")

	require.NotNil(t, env.Users)
	require.NotNil(t, env.Conferences)
	require.NotNil(t, env.Papers)

	usr := env.CreateUser(t, "ada@example.com", "Ada", "Lovelace")
	conf := env.OpenConference(t, "GopherCon", "Tooling")
	env.SetChairs(t, conf, usr)

	isChair, err := env.Conferences.IsChair(context.Background(), usr.ID, conf.ID)
	require.NoError(t, err)
	assert.True(t, isChair)

	p := env.SubmitPaper(t, usr, conf, "Generics in practice")
	assert.True(t, p.HasAuthor(usr.ID))
}
