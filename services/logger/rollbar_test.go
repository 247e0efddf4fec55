package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/user"
)

func TestRollbarLoggerPrints(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())

	usr := user.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	logger.Error("handling request", errors.New("boom"), usr)

	out := buf.String()
	assert.Contains(t, out, "[ERROR] handling request\n")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "ada@example.com")
}

func TestRollbarLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())
	logger.Enable(true) // no token, stays disabled

	usr := &user.User{ID: "u1", Email: "ada@example.com"}
	logger.Warn("slow query", map[string]interface{}{"table": "paper"}, usr)
	logger.Info("started")

	out := buf.String()
	assert.Contains(t, out, "[WARN] slow query\n")
	assert.Contains(t, out, "map[table:paper]")
	assert.Contains(t, out, "[INFO] started\n")
	assert.NotContains(t, out, "ada@example.com")
}
