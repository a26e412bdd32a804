package service

import (
	"context"
	"fmt"

	"github.com/ojin-app/keyguard/internal/crypto"
	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/internal/store"
	"github.com/ojin-app/keyguard/models"
)

// contactService stores contacts with field-level encryption: Name and
// Description are encrypted with the request's DataEncrypter before they
// reach the repository and decrypted on the way out. The repository never
// sees plaintext.
type contactService struct {
	contactRepository store.ContactRepository
	logger            *logger.Logger
}

// NewContactService constructs a ContactService over the given repository.
func NewContactService(contactRepository store.ContactRepository, logger *logger.Logger) ContactService {
	return &contactService{
		contactRepository: contactRepository,
		logger:            logger,
	}
}

// CreateContact encrypts the contact's fields and persists the record. The
// returned contact carries the plaintext fields with server-assigned
// identifiers.
func (c *contactService) CreateContact(ctx context.Context, enc *crypto.DataEncrypter, contact models.Contact) (models.Contact, error) {
	log := logger.FromContext(ctx)

	if !enc.Accepted() {
		return models.Contact{}, crypto.ErrKeyNotAccepted
	}
	if contact.Name == "" {
		return models.Contact{}, ErrMoreDataNeeded
	}

	plain := contact

	var err error
	if contact.Name, err = enc.EncryptField(contact.Name); err != nil {
		return models.Contact{}, fmt.Errorf("encrypt contact: %w", err)
	}
	if contact.Description != "" {
		if contact.Description, err = enc.EncryptField(contact.Description); err != nil {
			return models.Contact{}, fmt.Errorf("encrypt contact: %w", err)
		}
	}

	created, err := c.contactRepository.CreateContact(ctx, contact)
	if err != nil {
		log.Err(err).Int64("user_id", contact.UserID).Msg("contact creation ended with error")
		return models.Contact{}, fmt.Errorf("contact creation ended with error: %w", err)
	}

	plain.ContactID = created.ContactID
	plain.CreatedAt = created.CreatedAt
	plain.UpdatedAt = created.UpdatedAt

	return plain, nil
}

// GetContact retrieves one contact and decrypts its fields.
func (c *contactService) GetContact(ctx context.Context, enc *crypto.DataEncrypter, userID, contactID int64) (models.Contact, error) {
	log := logger.FromContext(ctx)

	if !enc.Accepted() {
		return models.Contact{}, crypto.ErrKeyNotAccepted
	}

	contact, err := c.contactRepository.GetContact(ctx, userID, contactID)
	if err != nil {
		return models.Contact{}, fmt.Errorf("contact lookup failed: %w", err)
	}

	if err := c.decryptContact(enc, &contact); err != nil {
		log.Err(err).Int64("contact_id", contactID).Msg("contact field decryption failed")
		return models.Contact{}, err
	}

	return contact, nil
}

// GetContacts retrieves all of a user's contacts and decrypts their fields.
func (c *contactService) GetContacts(ctx context.Context, enc *crypto.DataEncrypter, userID int64) ([]models.Contact, error) {
	log := logger.FromContext(ctx)

	if !enc.Accepted() {
		return nil, crypto.ErrKeyNotAccepted
	}

	contacts, err := c.contactRepository.GetContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("contact listing failed: %w", err)
	}

	for i := range contacts {
		if err := c.decryptContact(enc, &contacts[i]); err != nil {
			log.Err(err).Int64("contact_id", contacts[i].ContactID).Msg("contact field decryption failed")
			return nil, err
		}
	}

	return contacts, nil
}

// UpdateContact encrypts the supplied fields and applies a partial update.
// Nil fields stay untouched.
func (c *contactService) UpdateContact(ctx context.Context, enc *crypto.DataEncrypter, update models.ContactUpdate) error {
	log := logger.FromContext(ctx)

	if !enc.Accepted() {
		return crypto.ErrKeyNotAccepted
	}
	if update.Name == nil && update.Description == nil {
		return ErrMoreDataNeeded
	}

	if update.Name != nil {
		ciphered, err := enc.EncryptField(*update.Name)
		if err != nil {
			return fmt.Errorf("encrypt contact: %w", err)
		}
		update.Name = &ciphered
	}
	if update.Description != nil {
		ciphered, err := enc.EncryptField(*update.Description)
		if err != nil {
			return fmt.Errorf("encrypt contact: %w", err)
		}
		update.Description = &ciphered
	}

	if err := c.contactRepository.UpdateContact(ctx, update); err != nil {
		log.Err(err).Int64("contact_id", update.ContactID).Msg("contact update ended with error")
		return fmt.Errorf("contact update ended with error: %w", err)
	}

	return nil
}

// DeleteContact removes one contact. No key material involved.
func (c *contactService) DeleteContact(ctx context.Context, userID, contactID int64) error {
	if err := c.contactRepository.DeleteContact(ctx, userID, contactID); err != nil {
		return fmt.Errorf("contact deletion ended with error: %w", err)
	}

	return nil
}

func (c *contactService) decryptContact(enc *crypto.DataEncrypter, contact *models.Contact) error {
	var err error
	if contact.Name, err = enc.DecryptField(contact.Name); err != nil {
		return fmt.Errorf("decrypt contact: %w", err)
	}
	if contact.Description != "" {
		if contact.Description, err = enc.DecryptField(contact.Description); err != nil {
			return fmt.Errorf("decrypt contact: %w", err)
		}
	}

	return nil
}
