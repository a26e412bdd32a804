package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/models"
)

// contactRepository is the PostgreSQL-backed implementation of
// [ContactRepository]. Partial updates are built with squirrel so only the
// supplied ciphertext columns are touched.
type contactRepository struct {
	logger *logger.Logger
	db     *DB
	sb     sq.StatementBuilderType
}

// NewContactRepository constructs a [ContactRepository] backed by the
// provided database connection and logger.
func NewContactRepository(db *DB, logger *logger.Logger) ContactRepository {
	logger.Debug().Msg("creating contact repository")
	return &contactRepository{
		db:     db,
		logger: logger,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateContact persists a new contact record (ciphertext fields) and
// returns it with server-assigned fields.
func (r *contactRepository) CreateContact(ctx context.Context, contact models.Contact) (models.Contact, error) {
	log := logger.FromContext(ctx)

	row := r.db.QueryRowContext(ctx, createContact, contact.UserID, contact.Name, contact.Description)
	if err := row.Err(); err != nil {
		log.Err(err).Str("func", "*contactRepository.CreateContact").Msg("error creating contact")
		return models.Contact{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if err := scanContact(row, &contact); err != nil {
		log.Err(err).Str("func", "*contactRepository.CreateContact").Msg("error: scanning error")
		return models.Contact{}, err
	}

	return contact, nil
}

// GetContact retrieves one contact scoped to its owner.
func (r *contactRepository) GetContact(ctx context.Context, userID, contactID int64) (models.Contact, error) {
	log := logger.FromContext(ctx)

	var contact models.Contact
	row := r.db.QueryRowContext(ctx, getContact, userID, contactID)
	if err := row.Err(); err != nil {
		log.Err(err).Str("func", "*contactRepository.GetContact").Msg("error getting contact")
		return models.Contact{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if err := scanContact(row, &contact); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Contact{}, ErrContactNotFound
		}
		log.Err(err).Str("func", "*contactRepository.GetContact").Msg("error: scanning error")
		return models.Contact{}, err
	}

	return contact, nil
}

// GetContacts retrieves all contacts of one owner.
func (r *contactRepository) GetContacts(ctx context.Context, userID int64) ([]models.Contact, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, getContacts, userID)
	if err != nil {
		log.Err(err).Str("func", "*contactRepository.GetContacts").Msg("error getting contacts")
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var contact models.Contact
		if err := rows.Scan(&contact.ContactID, &contact.UserID, &contact.Name, &contact.Description, &contact.CreatedAt, &contact.UpdatedAt); err != nil {
			log.Err(err).Str("func", "*contactRepository.GetContacts").Msg("error: scanning error")
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}

	return contacts, nil
}

// UpdateContact applies a partial update. Nil fields in update stay
// untouched; updated_at is always bumped.
func (r *contactRepository) UpdateContact(ctx context.Context, update models.ContactUpdate) error {
	log := logger.FromContext(ctx)

	builder := r.sb.Update("contacts").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"contact_id": update.ContactID, "user_id": update.UserID})

	if update.Name != nil {
		builder = builder.Set("name", *update.Name)
	}
	if update.Description != nil {
		builder = builder.Set("description", *update.Description)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		log.Err(err).Str("func", "*contactRepository.UpdateContact").Msg("error building update query")
		return fmt.Errorf("error building sql query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*contactRepository.UpdateContact").Msg("error updating contact")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrContactNotFound
	}

	return nil
}

// DeleteContact removes one contact scoped to its owner.
func (r *contactRepository) DeleteContact(ctx context.Context, userID, contactID int64) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deleteContact, userID, contactID)
	if err != nil {
		log.Err(err).Str("func", "*contactRepository.DeleteContact").Msg("error deleting contact")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrContactNotFound
	}

	return nil
}

func scanContact(row *sql.Row, contact *models.Contact) error {
	return row.Scan(
		&contact.ContactID,
		&contact.UserID,
		&contact.Name,
		&contact.Description,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
}
