package services

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/identity"
	"github.com/rpupo63/showcase-backend/models"
	"github.com/rpupo63/showcase-backend/storage"
)

const (
	AvatarSize    = 400
	AvatarQuality = 0.8
)

type AccountConfig struct {
	AvatarBucket    string
	AvatarMaxSizeMB int
}

// AccountService edits the acting user's profile through the identity provider.
type AccountService struct {
	provider identity.Provider
	uploader *storage.Uploader
	cfg      AccountConfig
	logger   zerolog.Logger
}

func NewAccountService(provider identity.Provider, uploader *storage.Uploader, cfg AccountConfig) *AccountService {
	if cfg.AvatarBucket == "" {
		cfg.AvatarBucket = "avatars"
	}
	if cfg.AvatarMaxSizeMB <= 0 {
		cfg.AvatarMaxSizeMB = storage.DefaultMaxSizeMB
	}
	return &AccountService{
		provider: provider,
		uploader: uploader,
		cfg:      cfg,
		logger:   log.With().Str("component", "services.account").Logger(),
	}
}

// ProfileInput holds the editable text fields of a profile. Nil fields are kept.
type ProfileInput struct {
	Username *string `json:"username,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Website  *string `json:"website,omitempty"`
	Location *string `json:"location,omitempty"`
}

func (in *ProfileInput) normalize() {
	for _, f := range []*string{in.Username, in.Bio, in.Website, in.Location} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func (in ProfileInput) validate() error {
	return models.ValidationError(validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.When(in.Username != nil, validation.Required.Error("username cannot be blank"))),
		validation.Field(&in.Bio, validation.Length(0, 500)),
		validation.Field(&in.Website, is.URL),
		validation.Field(&in.Location, validation.Length(0, 100)),
	))
}

func sessionUser(ctx context.Context) (*identity.User, error) {
	user := identity.UserFromContext(ctx)
	if user == nil {
		return nil, errs.Unauthenticated
	}
	return user, nil
}

// Profile returns the acting user.
func (s *AccountService) Profile(ctx context.Context) (*identity.User, error) {
	return sessionUser(ctx)
}

func (s *AccountService) UpdateProfile(ctx context.Context, in ProfileInput) (*identity.User, error) {
	user, err := sessionUser(ctx)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, user, identity.Profile{
		Username: in.Username,
		Bio:      in.Bio,
		Website:  in.Website,
		Location: in.Location,
	})
}

// SetSkills replaces the skill list. Entries are trimmed, blanks dropped and
// repeats removed, keeping the first occurrence's position.
func (s *AccountService) SetSkills(ctx context.Context, skills []string) (*identity.User, error) {
	user, err := sessionUser(ctx)
	if err != nil {
		return nil, err
	}
	cleaned := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" || seen[skill] {
			continue
		}
		seen[skill] = true
		cleaned = append(cleaned, skill)
	}
	return s.update(ctx, user, identity.Profile{Skills: &cleaned})
}

func (s *AccountService) SetSocial(ctx context.Context, social models.SocialLinks) (*identity.User, error) {
	user, err := sessionUser(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range []*string{&social.GitHub, &social.Twitter, &social.LinkedIn, &social.Weibo, &social.WeChat, &social.Bilibili, &social.YouTube, &social.Instagram} {
		*f = strings.TrimSpace(*f)
	}
	return s.update(ctx, user, identity.Profile{Social: &social})
}

// ChangePassword checks that every field is present and the confirmation
// matches before asking the provider.
func (s *AccountService) ChangePassword(ctx context.Context, current, next, confirm string) error {
	user, err := sessionUser(ctx)
	if err != nil {
		return err
	}
	switch {
	case current == "" || next == "" || confirm == "":
		return errs.NewValidationError("password", "all password fields are required")
	case next != confirm:
		return errs.NewValidationError("confirm_password", "new passwords do not match")
	case len(next) < identity.MinPasswordLength:
		return errs.NewValidationError("new_password", fmt.Sprintf("must be at least %d characters", identity.MinPasswordLength))
	}
	if err := s.provider.ChangePassword(ctx, user.ID, current, next); err != nil {
		return err
	}
	s.logger.Info().Str("userID", user.ID).Msg("password changed")
	return nil
}

// UploadAvatar shrinks the image to the avatar size, stores it under
// user_<id>/ and points the profile at it.
func (s *AccountService) UploadAvatar(ctx context.Context, f storage.File) (*identity.User, error) {
	user, err := sessionUser(ctx)
	if err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, errs.NewStorageUnavailableError("avatar upload", nil)
	}

	if err := storage.CheckImage(f, s.cfg.AvatarMaxSizeMB); err != nil {
		return nil, err
	}
	compressed, err := storage.CompressImage(f, AvatarSize, AvatarSize, AvatarQuality)
	if err != nil {
		return nil, err
	}
	url, err := s.uploader.UploadImage(ctx, compressed, s.cfg.AvatarBucket, "user_"+user.ID, s.cfg.AvatarMaxSizeMB)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, user, identity.Profile{AvatarURL: &url})
}

func (s *AccountService) update(ctx context.Context, user *identity.User, p identity.Profile) (*identity.User, error) {
	updated, err := s.provider.UpdateProfile(ctx, user.ID, p)
	if err != nil {
		s.logger.Error().Err(err).Str("userID", user.ID).Msg("updating profile")
		return nil, err
	}
	return updated, nil
}
