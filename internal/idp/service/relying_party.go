package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/pkg/idx"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
	"github.com/go-playground/validator/v10"
	"github.com/segmentio/ksuid"
)

// RelyingPartyInput is the writable part of a relying party.
type RelyingPartyInput struct {
	Name           string   `validate:"required,max=255"`
	RedirectURIs   []string `validate:"required,min=1,dive,required,url"`
	SectorID       string   `validate:"omitempty,max=255"`
	LogoURL        string   `validate:"omitempty,url"`
	PrimaryColor   string   `validate:"omitempty,iscolor"`
	SecondaryColor string   `validate:"omitempty,iscolor"`
}

// InputError wraps validation failures of a RelyingPartyInput.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "invalid input: " + e.Err.Error() }
func (e *InputError) Unwrap() error { return ErrInvalidRequest }

// RelyingPartyService manages relying party registrations. Every operation
// is scoped to the owning user.
type RelyingPartyService struct {
	Store    store.Store
	Now      func() time.Time
	validate *validator.Validate
}

func NewRelyingPartyService(st store.Store) *RelyingPartyService {
	return &RelyingPartyService{
		Store:    st,
		Now:      time.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *RelyingPartyService) List(ctx context.Context, ownerID string) ([]domain.RelyingParty, error) {
	return s.Store.RelyingParties().ListRelyingPartiesByOwner(ctx, ownerID)
}

// Get returns the relying party if ownerID created it. Parties owned by
// someone else report ErrNotFound.
func (s *RelyingPartyService) Get(ctx context.Context, ownerID, id string) (domain.RelyingParty, error) {
	rp, err := s.Store.RelyingParties().GetRelyingPartyByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RelyingParty{}, ErrNotFound
		}
		return domain.RelyingParty{}, err
	}
	if rp.CreatedByUserID != ownerID {
		return domain.RelyingParty{}, ErrNotFound
	}
	return rp, nil
}

// Create registers a relying party with a generated client_id. ownerID may
// be empty for parties seeded from the command line.
func (s *RelyingPartyService) Create(ctx context.Context, ownerID string, in RelyingPartyInput) (domain.RelyingParty, error) {
	in, err := s.normalize(in)
	if err != nil {
		return domain.RelyingParty{}, err
	}

	now := s.Now().UTC()
	rp := domain.RelyingParty{
		ID:              idx.New().String(),
		RPID:            ksuid.New().String(),
		Name:            in.Name,
		SectorID:        in.SectorID,
		LogoURL:         in.LogoURL,
		PrimaryColor:    in.PrimaryColor,
		SecondaryColor:  in.SecondaryColor,
		Status:          domain.RelyingPartyStatusActive,
		CreatedByUserID: ownerID,
		CreatedAt:       now,
		UpdatedAt:       now,
		RedirectURIs:    in.RedirectURIs,
	}
	if err := s.Store.RelyingParties().CreateRelyingParty(ctx, rp); err != nil {
		return domain.RelyingParty{}, fmt.Errorf("create relying party: %w", err)
	}

	slogx.FromContext(ctx).Info("relying party created", "id", rp.ID, "rp_id", rp.RPID, "owner", ownerID)
	return rp, nil
}

// Update rewrites name, sector, branding and redirect URIs. The client_id
// never changes.
func (s *RelyingPartyService) Update(ctx context.Context, ownerID, id string, in RelyingPartyInput) (domain.RelyingParty, error) {
	in, err := s.normalize(in)
	if err != nil {
		return domain.RelyingParty{}, err
	}

	rp, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return domain.RelyingParty{}, err
	}

	rp.Name = in.Name
	rp.SectorID = in.SectorID
	rp.LogoURL = in.LogoURL
	rp.PrimaryColor = in.PrimaryColor
	rp.SecondaryColor = in.SecondaryColor
	rp.RedirectURIs = in.RedirectURIs
	rp.UpdatedAt = s.Now().UTC()

	if err := s.Store.RelyingParties().UpdateRelyingParty(ctx, rp); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RelyingParty{}, ErrNotFound
		}
		return domain.RelyingParty{}, fmt.Errorf("update relying party: %w", err)
	}
	return rp, nil
}

func (s *RelyingPartyService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.Store.RelyingParties().DeleteRelyingParty(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	slogx.FromContext(ctx).Info("relying party deleted", "id", id, "owner", ownerID)
	return nil
}

// normalize trims input, validates it and fills the default sector (the
// host of the first redirect URI).
func (s *RelyingPartyService) normalize(in RelyingPartyInput) (RelyingPartyInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SectorID = strings.TrimSpace(in.SectorID)
	in.LogoURL = strings.TrimSpace(in.LogoURL)
	in.PrimaryColor = strings.TrimSpace(in.PrimaryColor)
	in.SecondaryColor = strings.TrimSpace(in.SecondaryColor)

	uris := make([]string, 0, len(in.RedirectURIs))
	seen := make(map[string]bool, len(in.RedirectURIs))
	for _, u := range in.RedirectURIs {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		uris = append(uris, u)
	}
	in.RedirectURIs = uris

	if err := s.validate.Struct(in); err != nil {
		return in, &InputError{Err: err}
	}

	if in.SectorID == "" {
		u, err := url.Parse(in.RedirectURIs[0])
		if err != nil || u.Hostname() == "" {
			return in, &InputError{Err: errors.New("cannot derive sector from redirect URI")}
		}
		in.SectorID = u.Hostname()
	}
	return in, nil
}
