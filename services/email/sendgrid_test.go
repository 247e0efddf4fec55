package emailsvc

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confsys/core"
)

func TestSendgridService(t *testing.T) {
	conf := core.NewTestConfig()
	conf.SendgridApiKey = "sg-key"
	svc := NewSendgridService(conf, nopLogger{})

	reqs := make(chan rest.Request, 1)
	origAPI := sendgridAPI
	defer func() { sendgridAPI = origAPI }()
	sendgridAPI = func(req rest.Request) (*rest.Response, error) {
		reqs <- req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	svc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: "Ada Lovelace", Address: "ada@example.com"}},
		Subject: "Hello",
		BodyStr: "hi there",
	})

	var req rest.Request
	select {
	case req = <-reqs:
	case <-time.After(5 * time.Second):
		t.Fatal("email was not sent")
	}

	assert.Equal(t, rest.Post, req.Method)
	assert.Equal(t, "Bearer sg-key", req.Headers["Authorization"])

	var body struct {
		From             struct{ Email string }
		Personalizations []struct {
			To      []struct{ Email, Name string }
			Subject string
		}
		Content []struct{ Type, Value string }
	}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "noreply@localhost", body.From.Email)
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[ConfSys] Hello", body.Personalizations[0].Subject)
	assert.Equal(t, "ada@example.com", body.Personalizations[0].To[0].Email)
	require.Len(t, body.Content, 1)
	assert.Equal(t, "hi there", body.Content[0].Value)
}
