package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/showcase-backend/database"
	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/identity"
	"github.com/rpupo63/showcase-backend/models"
	"github.com/rpupo63/showcase-backend/storage"
	"github.com/rpupo63/showcase-backend/testutil"
)

type memoryStore struct {
	keys []string
	data map[string][]byte
	err  error
}

func (m *memoryStore) Put(_ context.Context, bucket, key string, body io.Reader, _ int64, _ string) error {
	if m.err != nil {
		return m.err
	}
	b, _ := io.ReadAll(body)
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.keys = append(m.keys, bucket+"/"+key)
	m.data[bucket+"/"+key] = b
	return nil
}

func (m *memoryStore) Delete(context.Context, string, string) error { return nil }

func (m *memoryStore) PublicURL(bucket, key string) string {
	return "https://cdn.test/" + bucket + "/" + key
}

type accountFixture struct {
	svc      *AccountService
	provider *identity.Local
	store    *memoryStore
	ctx      context.Context
	user     *identity.User
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	provider, err := identity.NewLocal(database.New(testutil.NewDB(t)), identity.LocalConfig{
		Secret:  []byte("account-test-secret"),
		Hashing: identity.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	})
	require.NoError(t, err)

	session, err := provider.SignUp(context.Background(), identity.SignUpInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	store := &memoryStore{}
	svc := NewAccountService(provider, storage.NewUploader(store), AccountConfig{})
	return &accountFixture{
		svc:      svc,
		provider: provider,
		store:    store,
		ctx:      identity.ContextWithUser(context.Background(), session.User),
		user:     session.User,
	}
}

func TestAccountRequiresSession(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	_, err := f.svc.Profile(ctx)
	assert.True(t, errs.IsUnauthenticated(err))
	_, err = f.svc.SetSkills(ctx, []string{"Go"})
	assert.True(t, errs.IsUnauthenticated(err))
	assert.True(t, errs.IsUnauthenticated(f.svc.ChangePassword(ctx, "a", "b", "b")))
}

func TestUpdateProfile(t *testing.T) {
	f := newAccountFixture(t)

	u, err := f.svc.UpdateProfile(f.ctx, ProfileInput{
		Bio:      ptr("  Full-stack builder "),
		Website:  ptr("https://alice.dev"),
		Location: ptr("Lisbon"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Full-stack builder", u.Bio)
	assert.Equal(t, "https://alice.dev", u.Website)
	assert.Equal(t, "Lisbon", u.Location)
	assert.Equal(t, "alice", u.Username)

	_, err = f.svc.UpdateProfile(f.ctx, ProfileInput{Website: ptr("not a url")})
	assert.True(t, errs.IsValidationError(err))

	_, err = f.svc.UpdateProfile(f.ctx, ProfileInput{Username: ptr(" ")})
	assert.True(t, errs.IsValidationError(err))
}

func TestSetSkillsDeduplicates(t *testing.T) {
	f := newAccountFixture(t)
	u, err := f.svc.SetSkills(f.ctx, []string{" Go ", "React", "", "Go", "SQL", "React"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "React", "SQL"}, u.Skills)
}

func TestSetSocial(t *testing.T) {
	f := newAccountFixture(t)
	u, err := f.svc.SetSocial(f.ctx, models.SocialLinks{GitHub: " https://github.com/alice ", Bilibili: "space.bilibili.com/1"})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/alice", u.Social.GitHub)
	assert.Equal(t, "space.bilibili.com/1", u.Social.Get("bilibili"))
	assert.Empty(t, u.Social.Twitter)
}

func TestChangePasswordChecks(t *testing.T) {
	f := newAccountFixture(t)

	tests := []struct {
		name                   string
		current, next, confirm string
		field                  string
	}{
		{"missing field", "", "secret2", "secret2", "password"},
		{"mismatch", "secret1", "secret2", "secret3", "confirm_password"},
		{"too short", "secret1", "12345", "12345", "new_password"},
		{"wrong current", "nope", "secret2", "secret2", "current_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.ChangePassword(f.ctx, tt.current, tt.next, tt.confirm)
			require.Error(t, err)
			var apiErr *errs.ApiErr
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.field, apiErr.Field)
		})
	}

	require.NoError(t, f.svc.ChangePassword(f.ctx, "secret1", "secret2", "secret2"))
	_, err := f.provider.SignIn(context.Background(), "alice", "secret2")
	assert.NoError(t, err)
}

func TestUploadAvatar(t *testing.T) {
	f := newAccountFixture(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1600, 800))))

	u, err := f.svc.UploadAvatar(f.ctx, storage.FileFromBytes("me.png", "image/png", buf.Bytes()))
	require.NoError(t, err)

	require.Len(t, f.store.keys, 1)
	key := f.store.keys[0]
	assert.True(t, strings.HasPrefix(key, "avatars/user_"+f.user.ID+"/"), key)
	assert.Equal(t, "https://cdn.test/"+key, u.AvatarURL)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.store.data[key]))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestUploadAvatarStorageFailureKeepsProfile(t *testing.T) {
	f := newAccountFixture(t)
	f.store.err = errors.New("bucket not found")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))))

	_, err := f.svc.UploadAvatar(f.ctx, storage.FileFromBytes("me.png", "image/png", buf.Bytes()))
	require.Error(t, err)
	assert.Equal(t, "bucket not found", err.Error())

	u, err := f.provider.Validate(context.Background(), mustAccessToken(t, f))
	require.NoError(t, err)
	assert.Contains(t, u.AvatarURL, "dicebear")
}

func mustAccessToken(t *testing.T, f *accountFixture) string {
	t.Helper()
	s, err := f.provider.SignIn(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	return s.AccessToken
}
