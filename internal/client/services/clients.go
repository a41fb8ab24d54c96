package services

import (
	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/records"
)

type ClientService struct {
	*Collection[models.Client]
}

func NewClientService(store records.Store[models.Client], rc RemoteCollection[models.Client], deps Deps) *ClientService {
	return &ClientService{Collection: newCollection[models.Client]("clients", store, rc, deps)}
}
