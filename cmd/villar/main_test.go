package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroSwift/villarbolsillo/internal/common"
)

const testAdminKey = "llave-maestra"

var recordIDPattern = regexp.MustCompile(`\((rec[0-9a-f]{14})\)`)

// villar runs the CLI against db with the given stdin.
func villar(t *testing.T, db, input string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("VILLAR_SESSION_ADMIN_KEY", testAdminKey)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{"--db", db, "--log-level", "error"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustVillar(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, err := villar(t, db, "", args...)
	require.NoError(t, err, out)
	return out
}

func newTown(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "villar.db")
	out := mustVillar(t, db, "catalog", "import", filepath.Join("testdata", "town.yaml"))
	require.Contains(t, out, "Catalog imported")
	return db
}

func createParticipant(t *testing.T, db string, args ...string) string {
	t.Helper()
	out := mustVillar(t, db, append([]string{"participants", "create"}, args...)...)
	m := recordIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}

func TestVersion(t *testing.T) {
	out := mustVillar(t, filepath.Join(t.TempDir(), "v.db"), "version")
	assert.Contains(t, out, "villar version dev")
}

func TestCatalogImport_MissingFile(t *testing.T) {
	db := filepath.Join(t.TempDir(), "v.db")
	_, err := villar(t, db, "", "catalog", "import", filepath.Join("testdata", "nowhere.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMigrate(t *testing.T) {
	mustVillar(t, filepath.Join(t.TempDir(), "nested", "v.db"), "migrate")
}

func TestCommandFlow(t *testing.T) {
	db := newTown(t)

	id := createParticipant(t, db, "--name", "Lucía", "--surname1", "García", "--role", "E")
	out := mustVillar(t, db, "participants", "assign", id, "1")
	assert.Contains(t, out, "FAMILIA GARCÍA")

	out = mustVillar(t, db, "accounts", "open", "-c", "1", "--savings")
	for _, want := range []string{"CORRIENTE", "TARJETA", "AHORRO"} {
		assert.Contains(t, out, want)
	}

	out = mustVillar(t, db, "movements", "new", "-c", "1", "-p", "pan")
	assert.Contains(t, out, "🛒 PAN: ")

	out = mustVillar(t, db, "movements", "new", "-c", "1", "-p", "PLAN AHORRO", "-a", "50")
	assert.Contains(t, out, "🏦 PLAN AHORRO: moved")

	out = mustVillar(t, db, "quota", "-c", "1")
	assert.Contains(t, out, "PEQUEÑA 7")
	assert.Contains(t, out, "GRANDE 1")

	out = mustVillar(t, db, "week", "close", "-c", "1")
	assert.Contains(t, out, "Week closed, 2 movement(s) settled")

	out = mustVillar(t, db, "quota", "-c", "1")
	assert.Contains(t, out, "PEQUEÑA 8")

	out = mustVillar(t, db, "movements", "list", "-c", "1")
	assert.Contains(t, out, "PAN")
	assert.Contains(t, out, "PLAN AHORRO")

	out = mustVillar(t, db, "balances", "verify", "-c", "1")
	assert.Contains(t, out, "CORRIENTE")

	_, err := villar(t, db, "", "participants", "delete", id)
	assert.ErrorIs(t, err, common.ErrCharacterInUse)
}

func TestAccountsList_Heading(t *testing.T) {
	db := newTown(t)
	id := createParticipant(t, db, "--name", "Eva", "--surname1", "Abad")
	mustVillar(t, db, "participants", "assign", id, "2")
	mustVillar(t, db, "accounts", "open", "-c", "2")

	out := mustVillar(t, db, "accounts", "list", "-c", "2")
	assert.Contains(t, out, "🏦 Accounts of ")
	assert.Contains(t, out, "CORRIENTE")
}

func TestMovementsNew_UnknownProduct(t *testing.T) {
	db := newTown(t)
	id := createParticipant(t, db, "--name", "Eva", "--surname1", "Abad")
	mustVillar(t, db, "participants", "assign", id, "2")
	mustVillar(t, db, "accounts", "open", "-c", "2")

	_, err := villar(t, db, "", "movements", "new", "-c", "2", "-p", "YATE")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = villar(t, db, "", "movements", "new", "-c", "2", "-p", "PAN", "--method", "BITCOIN")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestMovementsPurge_TakesCheckpoint(t *testing.T) {
	db := newTown(t)
	id := createParticipant(t, db, "--name", "Eva", "--surname1", "Abad")
	mustVillar(t, db, "participants", "assign", id, "2")
	out := mustVillar(t, db, "accounts", "open", "-c", "2")

	card := regexp.MustCompile(`TARJETA\s.*?(rec[0-9a-f]{14})`).FindStringSubmatch(out)
	require.Len(t, card, 2, out)

	out, err := villar(t, db, "n\n", "movements", "purge", card[1])
	require.NoError(t, err)
	assert.NotContains(t, out, "Deleted")

	out = mustVillar(t, db, "movements", "purge", card[1], "--yes")
	assert.Contains(t, out, "Deleted 1 movement(s)")

	out = mustVillar(t, db, "checkpoint", "list")
	assert.Contains(t, out, "auto-purge")
}

func TestCharacterNotFound(t *testing.T) {
	db := newTown(t)
	_, err := villar(t, db, "", "quota", "-c", "99")
	require.Error(t, err)
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		hint string
	}{
		{common.ErrPartiallyApplied, "villar balances verify"},
		{common.ErrQuotaExhausted, "villar week close"},
		{common.ErrMissingConfig, "VILLAR_"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Contains(t, describeError(tt.err), tt.hint)
		})
	}
}
