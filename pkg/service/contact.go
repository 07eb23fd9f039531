package service

import (
	"context"
	"strings"

	"hashpay/internal/wallet"
	"hashpay/models"
	"hashpay/pkg/apperr"
	"hashpay/pkg/repository"
)

const defaultRecentContacts = 5

type ContactService struct {
	repo repository.Contacts
}

func NewContactService(repo repository.Contacts) *ContactService {
	return &ContactService{repo: repo}
}

func (s *ContactService) ListContacts(ctx context.Context) ([]models.Contact, error) {
	return s.repo.List(ctx)
}

func (s *ContactService) FavoriteContacts(ctx context.Context) ([]models.Contact, error) {
	return s.repo.Favorites(ctx)
}

func (s *ContactService) RecentContacts(ctx context.Context, limit int) ([]models.Contact, error) {
	if limit <= 0 {
		limit = defaultRecentContacts
	}
	return s.repo.Recent(ctx, limit)
}

// WatchContacts emits the full contact list whenever the contacts table
// changes.
func (s *ContactService) WatchContacts(ctx context.Context) <-chan []models.Contact {
	return s.repo.Watch(ctx)
}

func (s *ContactService) WatchRecentContacts(ctx context.Context, limit int) <-chan []models.Contact {
	if limit <= 0 {
		limit = defaultRecentContacts
	}
	return s.repo.WatchRecent(ctx, limit)
}

func (s *ContactService) CreateContact(ctx context.Context, input models.ContactInput) (models.Contact, error) {
	c, err := contactFromInput(input)
	if err != nil {
		return c, err
	}
	if err := s.ensureAddressFree(ctx, c.WalletAddress, 0); err != nil {
		return c, err
	}
	c.ID, err = s.repo.Create(ctx, c)
	return c, err
}

// UpdateContact renames the contact or moves it to another address. The
// last payment date is kept.
func (s *ContactService) UpdateContact(ctx context.Context, id int64, input models.ContactInput) (models.Contact, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return existing, err
	}
	c, err := contactFromInput(input)
	if err != nil {
		return existing, err
	}
	if err := s.ensureAddressFree(ctx, c.WalletAddress, id); err != nil {
		return existing, err
	}
	c.ID = id
	c.LastTransactionDate = existing.LastTransactionDate
	if err := s.repo.Update(ctx, c); err != nil {
		return existing, err
	}
	return c, nil
}

func (s *ContactService) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	return s.repo.SetFavorite(ctx, id, favorite)
}

func (s *ContactService) DeleteContact(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *ContactService) ensureAddressFree(ctx context.Context, address string, self int64) error {
	other, err := s.repo.GetByAddress(ctx, address)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if other.ID != self {
		return apperr.Conflict("a contact with this address already exists: " + other.Name)
	}
	return nil
}

func contactFromInput(input models.ContactInput) (models.Contact, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return models.Contact{}, apperr.Validation("contact name is required")
	}
	if !wallet.IsValidAddress(input.WalletAddress) {
		return models.Contact{}, apperr.Validation("wallet address is not a valid address")
	}
	return models.Contact{
		Name:          name,
		WalletAddress: wallet.Normalize(input.WalletAddress),
		IsFavorite:    input.IsFavorite,
	}, nil
}
