package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/showcase-backend/auth"
	"github.com/rpupo63/showcase-backend/config"
	"github.com/rpupo63/showcase-backend/database"
	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/identity"
	"github.com/rpupo63/showcase-backend/services"
	"github.com/rpupo63/showcase-backend/storage"
)

type appOptions struct {
	envFile string
	storage bool
}

// app is the wiring shared by every command.
type app struct {
	config   map[string]string
	db       database.Database
	provider identity.Provider
	uploader *storage.Uploader
	tokens   auth.TokenStore
	close    func()
}

func (a *app) Close() {
	if a.close != nil {
		a.close()
	}
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	c, err := loadConfig(ctx, opts.envFile)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, c)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, c, db, opts)
}

// newApp wires the identity provider and storage around db. db is closed when
// the wiring fails.
func newApp(ctx context.Context, c map[string]string, db database.Database, opts appOptions) (*app, error) {
	provider, err := newProvider(c, db)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("closing database")
		}
		return nil, err
	}

	a := &app{
		config:   c,
		db:       db,
		provider: provider,
		tokens:   auth.NewFileStore(config.GetString(c, "SHOWCASE_SESSION_FILE", auth.DefaultSessionPath())),
		close: func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("closing database")
			}
		},
	}

	if opts.storage {
		store, err := storage.Open(ctx, c)
		if err != nil {
			log.Warn().Err(err).Msg("object storage unavailable, avatar uploads disabled")
		} else {
			a.uploader = storage.NewUploader(store)
		}
	}
	return a, nil
}

// loadConfig reads the environment and resolves ssm:// references.
func loadConfig(ctx context.Context, envFile string) (map[string]string, error) {
	var c map[string]string
	if envFile != "" {
		c = config.Load(envFile)
	} else {
		c = config.New()
	}
	if !config.NeedsSSM(c) {
		return c, nil
	}

	client, err := config.NewSSMClient(ctx, config.GetString(c, "AWS_REGION", config.GetString(c, "S3_REGION", "")))
	if err != nil {
		return nil, err
	}
	if err := config.ResolveSSM(ctx, c, client); err != nil {
		return nil, err
	}
	return c, nil
}

// newProvider builds the identity provider named by IDENTITY_PROVIDER.
func newProvider(c map[string]string, db database.Database) (identity.Provider, error) {
	emailDomain := config.GetString(c, "EMAIL_DOMAIN", "")

	switch name := config.GetString(c, "IDENTITY_PROVIDER", "local"); name {
	case "local":
		return identity.NewLocal(db, identity.LocalConfig{
			Secret:      []byte(config.GetString(c, "JWT_SECRET", "")),
			Issuer:      config.GetString(c, "JWT_ISSUER", ""),
			AccessTTL:   time.Duration(config.GetInt(c, "ACCESS_TOKEN_TTL_MINUTES", 0)) * time.Minute,
			RefreshTTL:  time.Duration(config.GetInt(c, "REFRESH_TOKEN_TTL_HOURS", 0)) * time.Hour,
			EmailDomain: emailDomain,
			Hashing:     identity.DefaultArgon2Params(),
		})
	case "descope":
		return identity.NewDescope(identity.DescopeConfig{
			ProjectID:     config.GetString(c, "DESCOPE_PROJECT_ID", ""),
			ManagementKey: config.GetString(c, "DESCOPE_MANAGEMENT_KEY", ""),
			EmailDomain:   emailDomain,
		})
	default:
		return nil, fmt.Errorf("unsupported IDENTITY_PROVIDER %q", name)
	}
}

func (a *app) accountConfig() services.AccountConfig {
	return services.AccountConfig{
		AvatarBucket:    config.GetString(a.config, "AVATAR_BUCKET", ""),
		AvatarMaxSizeMB: config.GetInt(a.config, "AVATAR_MAX_SIZE_MB", 0),
	}
}

// signedIn restores the stored session and returns a context carrying its
// user. The returned manager must be closed by the caller.
func (a *app) signedIn(ctx context.Context) (context.Context, *auth.Manager, error) {
	m := auth.NewManager(a.provider, a.tokens)
	snap := m.Start(ctx)
	if snap.State != auth.StateAuthenticated {
		m.Close()
		if snap.LastError != nil && errs.StatusOf(snap.LastError) != http.StatusUnauthorized {
			return nil, nil, snap.LastError
		}
		return nil, nil, fmt.Errorf("not logged in, run `showcase login` first")
	}
	return identity.ContextWithUser(ctx, snap.User), m, nil
}
