package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/nullprofile/internal/idp/app"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "nullprofile version "+app.BuildVersion+"\n", out)
}

func TestRPCreate(t *testing.T) {
	t.Parallel()

	db := filepath.Join(t.TempDir(), "np.db")

	out, err := run(t, "rp", "create",
		"--database", db,
		"--name", "My App",
		"--redirect-uri", "https://app.example.com/callback",
		"--redirect-uri", "http://localhost:3000/cb",
		"--json",
	)
	require.NoError(t, err)

	var got struct {
		ClientID     string   `json:"clientId"`
		SectorID     string   `json:"sectorId"`
		RedirectURIs []string `json:"redirectUris"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotEmpty(t, got.ClientID)
	require.Equal(t, "app.example.com", got.SectorID)
	require.Len(t, got.RedirectURIs, 2)

	store, err := app.OpenStore(app.Config{DatabaseFile: db})
	require.NoError(t, err)
	defer store.Close()
	rp, err := store.RelyingParties().GetRelyingPartyByRPID(t.Context(), got.ClientID)
	require.NoError(t, err)
	require.Equal(t, "My App", rp.Name)
}

func TestRPCreateTable(t *testing.T) {
	t.Parallel()

	out, err := run(t, "rp", "create",
		"--database", filepath.Join(t.TempDir(), "np.db"),
		"--name", "CLI",
		"--redirect-uri", "https://cli.example.com/cb",
		"--sector-id", "example.com",
	)
	require.NoError(t, err)
	require.Contains(t, out, "Client ID:")
	require.True(t, strings.Contains(out, "example.com"))
}

func TestRPCreateRejects(t *testing.T) {
	t.Parallel()

	db := filepath.Join(t.TempDir(), "np.db")

	_, err := run(t, "rp", "create", "--database", db, "--redirect-uri", "https://x.example.com/cb")
	require.Error(t, err, "name is required")

	_, err = run(t, "rp", "create", "--database", db, "--name", "x", "--redirect-uri", "not a uri")
	require.Error(t, err)
}
