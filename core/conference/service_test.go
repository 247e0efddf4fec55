package conference_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/user"
	"github.com/trezcool/confsys/testutil"
)

func TestServiceQueryAndGet(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	later := env.CreateConference(t, "Later", "2025-03-01", "2025-03-05", "Systems")
	sooner := env.CreateConference(t, "Sooner", "2024-03-01", "2024-03-05", "Theory", "Databases")

	confs, err := env.Conferences.Query(ctx)
	require.NoError(t, err)
	require.Len(t, confs, 2)
	assert.Equal(t, sooner.ID, confs[0].ID)
	assert.Equal(t, later.ID, confs[1].ID)

	got, err := env.Conferences.Get(ctx, sooner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sooner", got.Title)
	assert.Equal(t, "2024-03-05", got.EndDate.Format(conference.DateLayout))
	require.Len(t, got.Tracks, 2)
	assert.Equal(t, "Databases", got.Tracks[0].Title) // ordered by title
	assert.Equal(t, sooner.ID, got.Tracks[0].ConferenceID)

	_, err = env.Conferences.Get(ctx, "missing")
	assert.Equal(t, conference.ErrNotFound, err)
	assert.True(t, core.IsNotFound(err))

	_, err = env.Conferences.AddTrack(ctx, conference.NewTrack{ConferenceID: "missing", Title: "Nope"})
	assert.Equal(t, conference.ErrNotFound, err)

	track, err := env.Conferences.GetTrack(ctx, got.Tracks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Theory", track.Title)
}

func TestServiceSetChairs(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	alice := env.CreateUser(t, "alice@example.com", "Alice", "A")
	bob := env.CreateUser(t, "bob@example.com", "Bob", "B")
	carol := env.CreateUser(t, "carol@example.com", "Carol", "C")
	gophercon := env.CreateConference(t, "GopherCon", "2024-01-01", "2024-01-05", "Go")
	rustconf := env.CreateConference(t, "RustConf", "2024-02-01", "2024-02-05", "Rust")

	isChair := func(usr user.User, conf conference.Conference) bool {
		ok, err := env.Conferences.IsChair(ctx, usr.ID, conf.ID)
		require.NoError(t, err)
		return ok
	}

	env.SetChairs(t, rustconf, alice)
	env.SetChairs(t, gophercon, alice, bob)
	assert.True(t, isChair(alice, gophercon))
	assert.True(t, isChair(bob, gophercon))
	assert.False(t, isChair(carol, gophercon))

	// reconcile: alice dropped, carol added, bob kept
	chairs, err := env.Conferences.SetChairs(ctx, gophercon.ID, conference.SetChairs{UserIDs: []string{bob.ID, carol.ID, bob.ID}})
	require.NoError(t, err)
	assert.Len(t, chairs, 2)
	assert.False(t, isChair(alice, gophercon))
	assert.True(t, isChair(bob, gophercon))
	assert.True(t, isChair(carol, gophercon))
	assert.True(t, isChair(alice, rustconf), "other conferences are kept")

	users, err := env.Conferences.Chairs(ctx, gophercon.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{bob.Email, carol.Email}, []string{users[0].Email, users[1].Email})

	confIDs, err := env.Conferences.ChairedConferences(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{rustconf.ID}, confIDs)

	confIDs, err = env.Conferences.ChairedConferences(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, confIDs)

	// unknown user
	_, err = env.Conferences.SetChairs(ctx, gophercon.ID, conference.SetChairs{UserIDs: []string{"missing"}})
	require.Error(t, err)
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "user_ids", verr.Fields[0].Field)
	assert.True(t, isChair(bob, gophercon), "failed reconcile changes nothing")

	// clear
	_, err = env.Conferences.SetChairs(ctx, gophercon.ID, conference.SetChairs{})
	require.NoError(t, err)
	assert.False(t, isChair(bob, gophercon))
	assert.False(t, isChair(carol, gophercon))

	_, err = env.Conferences.SetChairs(ctx, "missing", conference.SetChairs{})
	assert.Equal(t, conference.ErrNotFound, err)

	ok, err = env.Conferences.IsChair(ctx, "", gophercon.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
