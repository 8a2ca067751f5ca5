package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/showcase-backend/auth"
	"github.com/rpupo63/showcase-backend/database"
	"github.com/rpupo63/showcase-backend/identity"
	"github.com/rpupo63/showcase-backend/models"
	"github.com/rpupo63/showcase-backend/testutil"
)

func testOpener(t *testing.T) (opener, string) {
	t.Helper()
	db := database.New(testutil.NewDB(t))
	provider, err := identity.NewLocal(db, identity.LocalConfig{
		Secret:  []byte("cli-test-secret"),
		Hashing: identity.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	})
	require.NoError(t, err)

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	a := &app{
		config:   map[string]string{},
		db:       db,
		provider: provider,
		tokens:   auth.NewFileStore(sessionFile),
	}
	return func(context.Context, appOptions) (*app, error) { return a, nil }, sessionFile
}

func run(t *testing.T, open opener, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSessionCommands(t *testing.T) {
	open, sessionFile := testOpener(t)

	_, err := run(t, open, "", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	out, err := run(t, open, "secret1\n", "register", "Alice")
	require.NoError(t, err)
	assert.Contains(t, out, "signed in as alice")
	assert.FileExists(t, sessionFile)

	out, err = run(t, open, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	out, err = run(t, open, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	_, err = run(t, open, "", "whoami")
	require.Error(t, err)

	_, err = run(t, open, "", "login", "alice", "--password", "nope-nope")
	require.Error(t, err)

	out, err = run(t, open, "", "login", "alice", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as alice")
}

func TestProjectCommands(t *testing.T) {
	open, _ := testOpener(t)
	_, err := run(t, open, "", "register", "alice", "--password", "secret1")
	require.NoError(t, err)

	out, err := run(t, open, "", "projects", "create", "--json",
		"--name", "Portfolio", "--description", "My site",
		"--category", "Portfolio", "--tech", "Next.js,Tailwind", "--repo", "https://github.com/alice/site")
	require.NoError(t, err)
	var created models.Project
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, []string{"Next.js", "Tailwind"}, []string(created.TechStack))
	assert.False(t, created.IsPublic)

	out, err = run(t, open, "", "projects", "list")
	require.NoError(t, err)
	assert.Contains(t, out, created.ID)
	assert.Contains(t, out, "private")

	out, err = run(t, open, "", "projects", "list", "--public")
	require.NoError(t, err)
	assert.Contains(t, out, "No projects")

	out, err = run(t, open, "", "projects", "publish", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Portfolio is now public")

	out, err = run(t, open, "", "projects", "list", "--public")
	require.NoError(t, err)
	assert.Contains(t, out, created.ID)

	out, err = run(t, open, "", "projects", "show", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Next.js, Tailwind")

	out, err = run(t, open, "n\n", "projects", "delete", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")

	out, err = run(t, open, "", "projects", "delete", created.ID, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted Portfolio")

	_, err = run(t, open, "", "projects", "show", created.ID)
	assert.Error(t, err)
}

func TestProjectCreateValidation(t *testing.T) {
	open, _ := testOpener(t)
	_, err := run(t, open, "", "register", "alice", "--password", "secret1")
	require.NoError(t, err)

	_, err = run(t, open, "", "projects", "create", "--name", "X", "--description", "Y", "--category", "Games")
	require.Error(t, err)

	_, err = run(t, open, "", "projects", "create", "--name", "X")
	require.Error(t, err, "description is a required flag")
}

func TestNewProvider(t *testing.T) {
	db := database.New(testutil.NewDB(t))

	p, err := newProvider(map[string]string{"JWT_SECRET": "s"}, db)
	require.NoError(t, err)
	assert.IsType(t, &identity.Local{}, p)

	_, err = newProvider(map[string]string{}, db)
	assert.Error(t, err, "the local provider needs a secret")

	_, err = newProvider(map[string]string{"IDENTITY_PROVIDER": "ldap"}, db)
	assert.Error(t, err)
}

func TestNewAppClosesDatabaseWhenProviderFails(t *testing.T) {
	ctx := context.Background()
	db := database.New(testutil.NewDB(t))

	_, err := newApp(ctx, map[string]string{"IDENTITY_PROVIDER": "ldap"}, db, appOptions{})
	require.Error(t, err)
	assert.Error(t, db.Ping(ctx))
}

func TestNewAppCloseReleasesDatabase(t *testing.T) {
	ctx := context.Background()
	db := database.New(testutil.NewDB(t))
	c := map[string]string{
		"JWT_SECRET":            "s",
		"SHOWCASE_SESSION_FILE": filepath.Join(t.TempDir(), "session.json"),
	}

	a, err := newApp(ctx, c, db, appOptions{})
	require.NoError(t, err)
	require.NoError(t, db.Ping(ctx))
	assert.IsType(t, &identity.Local{}, a.provider)

	a.Close()
	assert.Error(t, db.Ping(ctx))
}
