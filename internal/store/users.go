package store

import (
	"context"
	"time"

	"backoffice/internal/models"

	"github.com/lib/pq"
)

const userColumns = `id, name, cpf, phone, COALESCE(email, '') AS email, password_hash, role,
	email_confirmed, email_confirmation_code, email_confirmation_expires,
	address, city, state, zip, notes, created_at`

// CreateUser inserts a user and fills in its id and creation time
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, cpf, phone, email, password_hash, role, email_confirmed,
			email_confirmation_code, email_confirmation_expires, address, city, state, zip, notes)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := s.db.GetContext(ctx, user, query,
		user.Name, user.CPF, user.Phone, user.Email, user.PasswordHash, user.Role, user.EmailConfirmed,
		user.ConfirmationCode, user.ConfirmationExpiry, user.Address, user.City, user.State, user.Zip, user.Notes)
	return classify(err)
}

// GetUserByID retrieves a user by ID
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	if err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	if err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

// EmailExists checks whether an account uses email
func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email)
	return exists, err
}

// CPFExists checks whether an account uses cpf
func (s *PostgresStore) CPFExists(ctx context.Context, cpf string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM users WHERE cpf = $1)", cpf)
	return exists, err
}

// ListUsers returns all users, newest first
func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	return users, err
}

// UpdateUserProfile overwrites the profile fields of a user
func (s *PostgresStore) UpdateUserProfile(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = $1, email = NULLIF($2, ''), phone = $3, cpf = $4,
			address = $5, city = $6, state = $7, zip = $8, notes = $9
		WHERE id = $10`,
		user.Name, user.Email, user.Phone, user.CPF,
		user.Address, user.City, user.State, user.Zip, user.Notes, user.ID)
	if err != nil {
		return classify(err)
	}
	return requireAffected(res)
}

// UpdateUserCredentials replaces role and password hash
func (s *PostgresStore) UpdateUserCredentials(ctx context.Context, id int64, role, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET role = $1, password_hash = $2 WHERE id = $3",
		role, passwordHash, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetConfirmationCode replaces the active confirmation code
func (s *PostgresStore) SetConfirmationCode(ctx context.Context, id int64, code string, expiry time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET email_confirmation_code = $1, email_confirmation_expires = $2 WHERE id = $3",
		code, expiry, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// MarkEmailConfirmed confirms the email and clears the code if the user is
// still unconfirmed and code is the active one. It reports whether a row
// changed.
func (s *PostgresStore) MarkEmailConfirmed(ctx context.Context, id int64, code string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email_confirmed = TRUE, email_confirmation_code = NULL, email_confirmation_expires = NULL
		WHERE id = $1 AND email_confirmed = FALSE AND email_confirmation_code = $2`,
		id, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteUser hard-deletes a user
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteUsersByEmail removes the users with the given emails
func (s *PostgresStore) DeleteUsersByEmail(ctx context.Context, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE email = ANY($1)", pq.Array(emails))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
