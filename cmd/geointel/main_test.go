package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intelv1 "geointel/api/intel/v1"
	"geointel/internal/security"
)

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithInput(t, nil, args...)
}

// runWithInput is run with stdin wired to in.
func runWithInput(t *testing.T, in io.Reader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newApp()
	a.out = &out
	root := a.command()
	root.SetArgs(args)
	if in != nil {
		root.SetIn(in)
	}
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func TestGenerateThenAnalyzeLocally(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	_, err := run(t, "generate", "--size", "300", "--seed", "3", "--days-back", "60", "--out", path)
	require.NoError(t, err)

	out, err := run(t, "analyze", "--csv", path, "--k", "3")
	require.NoError(t, err)

	var resp intelv1.AnalyzeResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Report)
	assert.Equal(t, 300, resp.Report.KPIs.Total)
	assert.Len(t, resp.Report.Centers, 3)
	assert.Empty(t, resp.Report.MapEvents)
	assert.NotNil(t, resp.Alerts)

	out, err = run(t, "-o", "yaml", "analyze", "--csv", path, "--map-events")
	require.NoError(t, err)
	assert.Contains(t, out, "kpis:")
	assert.Contains(t, out, "map_events:")
}

func TestAnalyzeLocally_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	_, err := run(t, "generate", "--size", "50", "--out", path)
	require.NoError(t, err)

	_, err = run(t, "analyze", "--csv", path, "--eps", "3")
	assert.ErrorContains(t, err, "invalid analysis parameters")

	_, err = run(t, "analyze", "--csv", path, "--group", "Nobody")
	assert.ErrorContains(t, err, "no data")

	_, err = run(t, "analyze", "--csv", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestGenerate_Stdout(t *testing.T) {
	out, err := run(t, "generate", "--size", "5")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 6)
	assert.Equal(t, "date,latitude,longitude,group,region,note", lines[0])
}

func TestTokenKeygenAndIssue(t *testing.T) {
	out, err := run(t, "token", "keygen")
	require.NoError(t, err)
	privEnd := strings.Index(out, "-----END PRIVATE KEY-----")
	require.Positive(t, privEnd)
	privPEM := out[:privEnd+len("-----END PRIVATE KEY-----")]
	pubPEM := strings.TrimSpace(out[privEnd+len("-----END PRIVATE KEY-----"):])
	assert.True(t, strings.HasPrefix(pubPEM, "-----BEGIN PUBLIC KEY-----"))

	t.Setenv("JWT_PRIVATE_KEY", privPEM)
	t.Setenv("JWT_ISSUER", "geointel")
	t.Setenv("JWT_AUDIENCE", "geointel-api")
	out, err = run(t, "token", "issue", "--subject", "ops", "--role", "operator")
	require.NoError(t, err)

	var issued issuedToken
	require.NoError(t, json.Unmarshal([]byte(out), &issued))
	pub, err := security.ParsePublicKey(pubPEM)
	require.NoError(t, err)
	id, err := security.NewVerifier(pub, "geointel", "geointel-api").ValidateAccess(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", id.Subject)
	assert.Equal(t, security.RoleOperator, id.Role)

	_, err = run(t, "token", "issue", "--subject", "ops", "--role", "admin")
	assert.ErrorContains(t, err, "unknown role")
	_, err = run(t, "token", "issue")
	assert.ErrorContains(t, err, "--subject is required")
}

func TestUnknownFormat(t *testing.T) {
	_, err := run(t, "-o", "xml", "generate", "--size", "1")
	assert.ErrorContains(t, err, "unknown format")
}

func TestTimeoutFlag(t *testing.T) {
	_, err := run(t, "--timeout", "soon", "generate", "--size", "1")
	assert.ErrorContains(t, err, "invalid argument")

	_, err = run(t, "--timeout", "0s", "health")
	assert.ErrorContains(t, err, "--timeout must be positive")
}
