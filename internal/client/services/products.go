package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/remote"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/records"
)

// ProductUploader is implemented by *remote.Client.
type ProductUploader interface {
	CreateProductWithPhoto(ctx context.Context, p models.Product, up remote.Upload, key string) (models.Product, error)
}

type ProductService struct {
	*Collection[models.Product]
	photos   *PhotoResolver
	uploader ProductUploader
}

func NewProductService(store records.Store[models.Product], rc RemoteCollection[models.Product], up ProductUploader, photos *PhotoResolver, deps Deps) *ProductService {
	s := &ProductService{
		Collection: newCollection[models.Product]("products", store, rc, deps),
		photos:     photos,
		uploader:   up,
	}
	s.merge = photos.Merge
	s.prepareLocal = s.prepareOffline
	return s
}

// prepareOffline attaches an already cached image; nothing is downloaded.
func (s *ProductService) prepareOffline(ctx context.Context, p models.Product) (models.Product, error) {
	p.Image = ""
	if p.Photo != "" {
		if img, ok := s.photos.Cached(ctx, p.Photo); ok {
			p.Image = img
		}
	}
	return p, nil
}

// CreateWithPhoto uploads the product together with its photo. The server
// stores the file, so this needs a connection.
func (s *ProductService) CreateWithPhoto(ctx context.Context, p models.Product, up remote.Upload) (models.Product, error) {
	online, hasCred := s.online(), s.hasCredential()
	if !hasCred {
		return models.Product{}, remote.ErrUnauthorized
	}
	if !online {
		return models.Product{}, ErrRequiresConnection
	}
	if err := p.Validate(); err != nil {
		return models.Product{}, err
	}

	created, err := s.uploader.CreateProductWithPhoto(ctx, p, up, uuid.NewString())
	if err != nil {
		return models.Product{}, err
	}
	return s.storeAuthoritative(ctx, created, nil), nil
}
