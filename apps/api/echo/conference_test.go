package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confsys/core/paper"
)

func Test_conferenceApi_queryAndRetrieve(t *testing.T) {
	srv, env := setup(t)

	chair := env.CreateUser(t, "chair@example.com", "Chair", "Person")
	other := env.CreateUser(t, "other@example.com", "Other", "Person")
	open := env.OpenConference(t, "GopherCon", "Tooling")
	closed := env.CreateConference(t, "OldConf", "2019-01-01", "2019-01-03")
	env.SetChairs(t, open, chair)

	req, rec := newRequest(http.MethodGet, "/conferences")
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []conferenceItem
	decode(t, rec, &items)
	require.Len(t, items, 2)
	openByID := map[string]bool{}
	for _, item := range items {
		openByID[item.ID] = item.SubmissionsOpen
	}
	assert.True(t, openByID[open.ID])
	assert.False(t, openByID[closed.ID])

	tests := []struct {
		name      string
		path      string
		token     string
		wantCode  int
		wantChair bool
	}{
		{name: "anonymous", path: "/conference/" + open.ID, wantCode: http.StatusOK},
		{name: "chair", path: "/conference/" + open.ID, token: getToken(t, env, chair), wantCode: http.StatusOK, wantChair: true},
		{name: "not chair", path: "/conference/" + open.ID, token: getToken(t, env, other), wantCode: http.StatusOK},
		{name: "bad token", path: "/conference/" + open.ID, token: "lol", wantCode: http.StatusUnauthorized},
		{name: "not found", path: "/conference/nope", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			srv.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			var detail conferenceDetail
			decode(t, rec, &detail)
			assert.Equal(t, open.ID, detail.ID)
			assert.True(t, detail.SubmissionsOpen)
			assert.Equal(t, tt.wantChair, detail.UserIsProgramChair)
			assert.Len(t, detail.Tracks, 1)
		})
	}
}

func Test_conferenceApi_publicDetail(t *testing.T) {
	srv, env := setup(t)

	chair := env.CreateUser(t, "chair@example.com", "Chair", "Person")
	conf := env.OpenConference(t, "GopherCon", "Tooling")
	env.SetChairs(t, conf, chair)

	req, rec := newRequest(http.MethodGet, "/conference/"+conf.ID)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw map[string]interface{}
	decode(t, rec, &raw)
	assert.Equal(t, conf.ID, raw["id"])
	assert.Equal(t, false, raw["user_is_program_chair"])
	assert.Equal(t, true, raw["submissions_open"])

	// the routes below the detail still require a token
	runHTTPTests(t, srv, []httpTest{
		{name: "submit form", method: http.MethodGet, path: "/conference/" + conf.ID + "/submit_paper", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "submit", method: http.MethodPost, path: "/conference/" + conf.ID + "/submit_paper", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "view papers", method: http.MethodGet, path: "/conference/" + conf.ID + "/view_papers", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
	})
}

func Test_conferenceApi_submitPaper(t *testing.T) {
	srv, env := setup(t)

	author := env.CreateUser(t, "author@example.com", "Ada", "Lovelace")
	coauthor := env.CreateUser(t, "coauthor@example.com", "Grace", "Hopper")
	conf := env.OpenConference(t, "GopherCon", "Tooling")
	other := env.OpenConference(t, "RustConf", "Borrowing")
	token := getToken(t, env, author)
	path := "/conference/" + conf.ID + "/submit_paper"

	t.Run("form", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var form submitPaperForm
		decode(t, rec, &form)
		assert.Equal(t, conf.ID, form.Conference.ID)
		require.Len(t, form.Tracks, 1)
		require.Len(t, form.Users, 1)
		assert.Equal(t, coauthor.ID, form.Users[0].ID)
	})

	t.Run("auth required", func(t *testing.T) {
		req, rec := newMultipartRequest(t, path, "", nil, "paper.pdf", []byte("%PDF"))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, token, []byte(`{"title":"x"}`))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong track", func(t *testing.T) {
		fields := map[string][]string{
			"title": {"Generics"}, "abstract": {"All about it"}, "track": {other.Tracks[0].ID},
		}
		req, rec := newMultipartRequest(t, path, token, fields, "paper.pdf", []byte("%PDF"))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"track"`)
	})

	t.Run("missing file", func(t *testing.T) {
		fields := map[string][]string{
			"title": {"Generics"}, "abstract": {"All about it"}, "track": {conf.Tracks[0].ID},
		}
		req, rec := newMultipartRequest(t, path, token, fields, "", nil)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		fields := map[string][]string{
			"title":    {"Generics"},
			"abstract": {"All about it"},
			"track":    {conf.Tracks[0].ID},
			"authors":  {coauthor.ID},
		}
		req, rec := newMultipartRequest(t, path, token, fields, "generics.pdf", []byte("%PDF-1.4"))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var p paper.Paper
		decode(t, rec, &p)
		assert.Equal(t, "Generics", p.Title)
		assert.Equal(t, "generics.pdf", p.FileName)
		assert.Equal(t, paper.StatusSubmitted, p.Status)
		assert.ElementsMatch(t, []string{author.ID, coauthor.ID}, p.AuthorIDs)

		req, rec = newAuthRequest(http.MethodGet, "/view_papers", getToken(t, env, coauthor))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var papers []paper.Paper
		decode(t, rec, &papers)
		require.Len(t, papers, 1)
		assert.Equal(t, p.ID, papers[0].ID)
	})
}

func Test_conferenceApi_viewPapers(t *testing.T) {
	srv, env := setup(t)

	author := env.CreateUser(t, "author@example.com", "Ada", "Lovelace")
	chair := env.CreateUser(t, "chair@example.com", "Chair", "Person")
	conf := env.OpenConference(t, "GopherCon", "Tooling", "Concurrency")
	env.SetChairs(t, conf, chair)
	env.SubmitPaper(t, author, conf, "First")
	env.SubmitPaper(t, author, conf, "Second")
	path := "/conference/" + conf.ID + "/view_papers"

	runHTTPTests(t, srv, []httpTest{
		{name: "not chair", method: http.MethodGet, path: path, token: getToken(t, env, author), wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})},
		{name: "unknown conference", method: http.MethodGet, path: "/conference/nope/view_papers", token: getToken(t, env, chair), wantCode: http.StatusNotFound},
	})

	req, rec := newAuthRequest(http.MethodGet, path, getToken(t, env, chair))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var groups []paper.TrackPapers
	decode(t, rec, &groups)
	require.Len(t, groups, 2)
	total := 0
	for _, g := range groups {
		total += len(g.Papers)
	}
	assert.Equal(t, 2, total)
}
