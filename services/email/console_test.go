package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confsys/core"
	appfs "github.com/trezcool/confsys/fs"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestConsoleService(t *testing.T) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, nopLogger{}, true)
	svc := NewConsoleServiceMock(conf, nopLogger{})

	to := []mail.Address{{Name: "Ada Lovelace", Address: "ada@example.com"}}
	svc.SendMessages(
		&core.EmailMessage{
			To:           to,
			Subject:      "Password Reset",
			TemplateName: "password_reset",
			TemplateData: map[string]interface{}{"Name": "Ada Lovelace", "Path": "/password-reset/uid/token"},
		},
		&core.EmailMessage{To: to, Subject: "Plain", BodyStr: "hello"},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
		&core.EmailMessage{To: to, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)

	reset := sent[0]
	assert.Contains(t, reset.TextContent, "Hi Ada Lovelace")
	assert.Contains(t, reset.TextContent, conf.FrontendBaseURL+"/password-reset/uid/token")
	assert.True(t, strings.Contains(reset.HTMLContent, `href="`+conf.FrontendBaseURL+`/password-reset/uid/token"`))

	plain := sent[1]
	assert.Equal(t, "hello", plain.TextContent)
	assert.Empty(t, plain.HTMLContent)
}

func TestConsoleServiceMissingTemplateData(t *testing.T) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, nopLogger{}, true)
	svc := NewConsoleServiceMock(conf, nopLogger{})

	svc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: "ada@example.com"}},
		TemplateName: "reviewer_assigned",
		TemplateData: map[string]interface{}{"Name": "Ada"},
	})
	assert.Empty(t, svc.SentMessages())
}
