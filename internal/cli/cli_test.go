package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mop.org/internal/auth"
	"mop.org/internal/cases"
)

type memBackend struct {
	cases    *cases.InMemory
	identity *auth.InMemory
}

func newMemBackend(t *testing.T) *memBackend {
	t.Helper()
	return &memBackend{cases: cases.NewInMemory(), identity: auth.NewInMemory()}
}

func (m *memBackend) open(context.Context, *RootOptions) (*Backend, error) {
	return &Backend{Cases: m.cases, Identity: m.identity}, nil
}

func execute(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(open)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(newMemBackend(t).open)
	for _, path := range [][]string{
		{"migrate", "up"}, {"migrate", "down"}, {"migrate", "status"}, {"migrate", "seed"},
		{"catalog", "ensure"}, {"rbac", "check"}, {"cases", "stats"}, {"cases", "get"}, {"cases", "seed-demo"}, {"health"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(newMemBackend(t).open)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	_, err := execute(t, newMemBackend(t).open, "--format", "yaml", "catalog", "ensure")
	require.Error(t, err)
}

func TestCatalogEnsureAndRBACCheck(t *testing.T) {
	mem := newMemBackend(t)

	out, err := execute(t, mem.open, "--format", "json", "catalog", "ensure")
	require.NoError(t, err)
	var resp struct {
		Status string         `json:"status"`
		Data   map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Positive(t, resp.Data["created"])

	out, err = execute(t, mem.open, "catalog", "ensure")
	require.NoError(t, err)
	assert.Contains(t, out, "(0 created)")

	out, err = execute(t, mem.open, "rbac", "check", "onboarding_officer", auth.PermCaseManagement)
	require.NoError(t, err)
	assert.Contains(t, out, "GRANTED")

	out, err = execute(t, mem.open, "rbac", "check", "admin", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "GRANTED")

	out, err = execute(t, mem.open, "rbac", "check", "viewer", auth.PermUserManagement)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "DENIED")
}

func TestCasesStatsAndGet(t *testing.T) {
	mem := newMemBackend(t)
	svc, err := cases.NewService(mem.cases)
	require.NoError(t, err)
	approved := cases.StatusApproved
	c, err := svc.CreateCase(context.Background(), cases.Input{BusinessName: "Kedai Runcit Maju", Status: &approved})
	require.NoError(t, err)
	_, err = svc.CreateCase(context.Background(), cases.Input{BusinessName: "Syarikat Baru"})
	require.NoError(t, err)

	out, err := execute(t, mem.open, "--format", "json", "cases", "stats")
	require.NoError(t, err)
	var resp struct {
		Data StatsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Data.WindowTotal)
	assert.Equal(t, 2, resp.Data.LifetimeTotal)
	assert.Equal(t, 1, resp.Data.StatusCounts["Approved"])

	out, err = execute(t, mem.open, "cases", "get", c.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Kedai Runcit Maju")
	assert.Contains(t, out, "Case created by System")

	_, err = execute(t, mem.open, "cases", "get", "MOP-1999-999")
	require.Error(t, err)

	_, err = execute(t, mem.open, "cases", "stats", "--window-days", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCasesSeedDemo(t *testing.T) {
	mem := newMemBackend(t)

	out, err := execute(t, mem.open, "--format", "json", "cases", "seed-demo", "--count", "4", "--steps", "2", "--seed", "9")
	require.NoError(t, err)
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Created  int            `json:"created"`
			ByStatus map[string]int `json:"case_statistics"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Created)

	all, err := mem.cases.FindAll(context.Background(), cases.OrderInsertion)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = execute(t, mem.open, "cases", "seed-demo", "--count", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrateRequiresDatabase(t *testing.T) {
	_, err := execute(t, newMemBackend(t).open, "migrate", "status")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoDatabase)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPostgresOpenerRequiresDSN(t *testing.T) {
	_, err := PostgresOpener(context.Background(), &RootOptions{})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOutputFormatterJSONError(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Error("E001", "boom"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
}
