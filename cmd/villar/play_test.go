package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestPlay_FullSession(t *testing.T) {
	db := newTown(t)
	k := testAdminKey

	input := script(
		"L",
		"C", "wrong",
		"C", k, "lucía", "garcía", "", "E",
		"P", k,
		"A", k, "1",
		"O", k,
		"N", k, "n", "n",
		"O", k,
		"N", k, "5", "1", "D",
		"L", "CORRIENTE",
		"V", "V", "V", "V",
		"S", k,
	)
	out, err := villar(t, db, input, "play")
	require.NoError(t, err)

	for _, want := range []string{
		"No participants yet.",
		"not authorized",
		"Created GARCÍA , LUCÍA",
		"Assigned character 1 (FAMILIA GARCÍA)",
		"TARJETA",
		"PAN: ",
		"MENSUALIDAD",
		"See you later!",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPlay_InvalidInputKeepsState(t *testing.T) {
	db := newTown(t)
	out, err := villar(t, db, script("X", "R", "nadie", "nadie", ""), "play")
	require.NoError(t, err)

	assert.Contains(t, out, "invalid command")
	assert.Contains(t, out, "not found")
	// Still on the main menu after both failures.
	assert.Equal(t, 3, strings.Count(out, "Main menu"))
}

func TestPlay_ParticipantKeyOnlyOpensOwnActions(t *testing.T) {
	db := newTown(t)
	id := createParticipant(t, db, "--name", "Ana", "--surname1", "Zamora")

	out, err := villar(t, db, script(
		"R", "ana", "zamora", "",
		"P", id,
		"A", id,
	), "play")
	require.NoError(t, err)

	assert.Contains(t, out, "ZAMORA , ANA")
	assert.Equal(t, 1, strings.Count(out, "not authorized"))
	assert.Contains(t, out, "Character · ZAMORA , ANA")
}

func TestPlay_ExhaustedWeekStopsBeforeChoosingProduct(t *testing.T) {
	t.Setenv("VILLAR_LEDGER_CAPS_LARGE", "1")
	t.Setenv("VILLAR_LEDGER_CAPS_MEDIUM", "1")
	t.Setenv("VILLAR_LEDGER_CAPS_SMALL", "1")

	db := newTown(t)
	id := createParticipant(t, db, "--name", "Ana", "--surname1", "Zamora")
	mustVillar(t, db, "participants", "assign", id, "1")
	mustVillar(t, db, "accounts", "open", "-c", "1", "--savings")
	mustVillar(t, db, "movements", "new", "-c", "1", "-p", "PAN")
	mustVillar(t, db, "movements", "new", "-c", "1", "-p", "CINE")
	mustVillar(t, db, "movements", "new", "-c", "1", "-p", "PLAN AHORRO", "-a", "50")

	out := mustVillar(t, db, "quota", "-c", "1")
	for _, spent := range []string{"GRANDE 0", "MEDIANA 0", "PEQUEÑA 0"} {
		require.Contains(t, out, spent)
	}

	out, err := villar(t, db, script(
		"R", "ana", "zamora", "",
		"P", id,
		"O", id,
		"O", id,
		"N", id,
	), "play")
	require.NoError(t, err)

	assert.Contains(t, out, "weekly quota exhausted")
	assert.Contains(t, out, "maximum number of movements this week")
	assert.Contains(t, out, "villar week close")
	assert.NotContains(t, out, "SUPERMERCADO")
	assert.NotContains(t, out, "Merchant")
}

func TestPlay_RequiresAdminKey(t *testing.T) {
	db := newTown(t)
	t.Setenv("VILLAR_SESSION_ADMIN_KEY", "")
	t.Setenv("VILLAR_ADMIN_KEY", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--db", db, "--log-level", "error", "play"})
	cmd.SetOut(&strings.Builder{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.admin_key")
}
