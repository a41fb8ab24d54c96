package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ordersync/internal/client/connectivity"
	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/records"
	"github.com/dmitrijs2005/ordersync/internal/logging"
)

// ProfileFetcher is implemented by *remote.Client.
type ProfileFetcher interface {
	Me(ctx context.Context) (models.User, error)
}

// UserService keeps the signed-in user's profile as a singleton record.
type UserService struct {
	store  records.Store[models.User]
	remote ProfileFetcher
	net    connectivity.Observer
	creds  CredentialChecker
	log    logging.Logger
}

func NewUserService(store records.Store[models.User], r ProfileFetcher, deps Deps) *UserService {
	log := deps.Log
	if log == nil {
		log = logging.Discard()
	}
	return &UserService{store: store, remote: r, net: deps.Net, creds: deps.Creds, log: log.With("collection", "users")}
}

// Load fetches the profile when possible and falls back to the cached one.
func (s *UserService) Load(ctx context.Context) (models.User, Source, error) {
	var remoteErr error
	if s.net != nil && s.net.Online() && s.creds != nil && s.creds.HasCredential() {
		u, err := s.remote.Me(ctx)
		if err == nil {
			if err := s.store.ReplaceAll(ctx, []models.User{u}); err != nil {
				s.log.Warn(ctx, "failed to cache profile", "error", err)
			}
			return u, SourceRemote, nil
		}
		remoteErr = err
		s.log.Warn(ctx, "profile fetch failed, using cache", "error", err)
	}

	cached, err := s.store.GetAll(ctx)
	if err == nil && len(cached) > 0 {
		return cached[0], SourceCache, nil
	}
	if err != nil {
		s.log.Warn(ctx, "profile cache read failed", "error", err)
	}
	if remoteErr != nil {
		return models.User{}, SourceCache, fmt.Errorf("%w: %w", ErrNoData, remoteErr)
	}
	return models.User{}, SourceCache, ErrNoData
}
