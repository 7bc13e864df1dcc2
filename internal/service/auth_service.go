package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"backoffice/internal/apperr"
	"backoffice/internal/auth"
	"backoffice/internal/models"
	"backoffice/internal/notify"
	"backoffice/internal/store"
	"backoffice/internal/util"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const defaultAdminName = "Administrador"

// AuthService handles accounts, sessions and email confirmation
type AuthService struct {
	users           store.UserStore
	tokens          *auth.TokenManager
	notifier        notify.Notifier
	confirmationTTL time.Duration
	hashCost        int
	now             func() time.Time
	logger          *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	users store.UserStore,
	tokens *auth.TokenManager,
	notifier notify.Notifier,
	confirmationTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:           users,
		tokens:          tokens,
		notifier:        notifier,
		confirmationTTL: confirmationTTL,
		hashCost:        bcrypt.DefaultCost,
		now:             time.Now,
		logger:          util.GetLogger(),
	}
}

// RegisterRequest represents a self-service sign up
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	CPF      string `json:"cpf"`
	Phone    string `json:"phone"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ConfirmEmailRequest carries the code sent to the customer
type ConfirmEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// ResendConfirmationRequest asks for a new confirmation code
type ResendConfirmationRequest struct {
	Email string `json:"email" binding:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// CustomerRequest is the admin view of a customer profile
type CustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	CPF     string `json:"cpf"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Notes   string `json:"notes"`
}

func (r *CustomerRequest) bindingMessage(validator.ValidationErrors) string {
	return msgNameRequired
}

// Register creates an unconfirmed customer, issues a session token and
// sends the confirmation code
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (_ *AuthResponse, err error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer func() { util.EndSpan(span, err) }()

	if err := checkBinding(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" {
		return nil, apperr.Validation(msgMissingFields)
	}
	cpf := optional(req.CPF)

	if err := s.checkUnique(ctx, email, cpf); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, apperr.Internal(msgServerError, fmt.Errorf("failed to hash password: %w", err))
	}

	code, err := generateConfirmationCode()
	if err != nil {
		return nil, apperr.Internal(msgServerError, err)
	}
	expiresAt := s.now().Add(s.confirmationTTL)

	user := &models.User{
		Name:               name,
		CPF:                cpf,
		Phone:              strings.TrimSpace(req.Phone),
		Email:              email,
		PasswordHash:       string(hash),
		Role:               models.RoleCustomer,
		ConfirmationCode:   &code,
		ConfirmationExpiry: &expiresAt,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperr.Internal(msgServerError, err)
	}

	util.UsersRegisteredTotal.Inc()
	s.logger.Info("User registered", zap.Int64("user_id", user.ID))

	s.sendConfirmation(ctx, user, code, expiresAt)

	return &AuthResponse{Token: token, User: user.Public()}, nil
}

// Login verifies credentials and issues a fresh token
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	if err := checkBinding(req); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, apperr.Validation(msgMissingFields)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			return nil, apperr.New(apperr.KindInvalidCredentials, msgInvalidCredentials)
		}
		return nil, storeError(err, msgUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		util.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, apperr.New(apperr.KindInvalidCredentials, msgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperr.Internal(msgServerError, err)
	}

	util.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return &AuthResponse{Token: token, User: user.Public()}, nil
}

// ConfirmEmail marks the address as confirmed when code is the active,
// unexpired code
func (s *AuthService) ConfirmEmail(ctx context.Context, req *ConfirmEmailRequest) error {
	ctx, span := util.StartSpan(ctx, "AuthService.ConfirmEmail")
	defer span.End()

	if err := checkBinding(req); err != nil {
		return err
	}
	email := normalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return apperr.Validation(msgMissingFields)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return storeError(err, msgUserNotFound)
	}

	switch {
	case user.EmailConfirmed:
		return apperr.New(apperr.KindAlreadyConfirmed, "Email already confirmed")
	case user.ConfirmationCode == nil:
		return apperr.New(apperr.KindNoCodeIssued, "No confirmation code issued")
	case subtle.ConstantTimeCompare([]byte(*user.ConfirmationCode), []byte(code)) != 1:
		return apperr.New(apperr.KindCodeMismatch, "Invalid confirmation code")
	case user.ConfirmationExpiry == nil || s.now().After(*user.ConfirmationExpiry):
		return apperr.New(apperr.KindCodeExpired, "Confirmation code expired")
	}

	confirmed, err := s.users.MarkEmailConfirmed(ctx, user.ID, code)
	if err != nil {
		return storeError(err, msgUserNotFound)
	}
	if !confirmed {
		// a concurrent confirm or resend got there first
		return apperr.New(apperr.KindCodeMismatch, "Invalid confirmation code")
	}

	util.EmailsConfirmedTotal.Inc()
	s.logger.Info("Email confirmed", zap.Int64("user_id", user.ID))
	return nil
}

// ResendConfirmation replaces the active code with a new one and sends it
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) error {
	ctx, span := util.StartSpan(ctx, "AuthService.ResendConfirmation")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validation(msgMissingFields)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return storeError(err, msgUserNotFound)
	}
	if user.EmailConfirmed {
		return apperr.New(apperr.KindAlreadyConfirmed, "Email already confirmed")
	}

	code, err := generateConfirmationCode()
	if err != nil {
		return apperr.Internal(msgServerError, err)
	}
	expiresAt := s.now().Add(s.confirmationTTL)

	if err := s.users.SetConfirmationCode(ctx, user.ID, code, expiresAt); err != nil {
		return storeError(err, msgUserNotFound)
	}

	s.sendConfirmation(ctx, user, code, expiresAt)
	return nil
}

// Authenticate validates a bearer token
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*auth.Claims, error) {
	if rawToken == "" {
		return nil, apperr.New(apperr.KindMissingToken, "No token")
	}
	claims, err := s.tokens.Parse(ctx, rawToken)
	if errors.Is(err, auth.ErrDenylistUnavailable) {
		return nil, apperr.Internal(msgServerError, err)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidToken, "Invalid token", err)
	}
	return claims, nil
}

// GetCurrentUser resolves the user behind a token
func (s *AuthService) GetCurrentUser(ctx context.Context, rawToken string) (*models.PublicUser, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.GetCurrentUser")
	defer span.End()

	claims, err := s.Authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	public := user.Public()
	return &public, nil
}

// Logout revokes the token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	ctx, span := util.StartSpan(ctx, "AuthService.Logout")
	defer span.End()

	claims, err := s.Authenticate(ctx, rawToken)
	if err != nil {
		return err
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return apperr.Internal(msgServerError, err)
	}

	s.logger.Info("User logged out", zap.Int64("user_id", claims.UserID))
	return nil
}

// ListCustomers returns every account, newest first
func (s *AuthService) ListCustomers(ctx context.Context) ([]models.PublicUser, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.ListCustomers")
	defer span.End()

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	customers := make([]models.PublicUser, 0, len(users))
	for i := range users {
		customers = append(customers, users[i].Public())
	}
	return customers, nil
}

// AdminCreateCustomer creates a customer directly. The stored credential is
// random, so the account cannot log in until a password is set.
func (s *AuthService) AdminCreateCustomer(ctx context.Context, req *CustomerRequest) (*models.PublicUser, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.AdminCreateCustomer")
	defer span.End()

	if err := checkBinding(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation(msgNameRequired)
	}
	email := normalizeEmail(req.Email)
	cpf := optional(req.CPF)

	if err := s.checkUnique(ctx, email, cpf); err != nil {
		return nil, err
	}

	hash, err := s.throwawayHash()
	if err != nil {
		return nil, apperr.Internal(msgServerError, err)
	}

	user := &models.User{PasswordHash: hash, Role: models.RoleCustomer}
	applyProfile(user, req)
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	s.logger.Info("Customer created by admin", zap.Int64("user_id", user.ID))
	public := user.Public()
	return &public, nil
}

// AdminGetCustomer retrieves a customer by id
func (s *AuthService) AdminGetCustomer(ctx context.Context, id int64) (*models.PublicUser, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.AdminGetCustomer")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}
	public := user.Public()
	return &public, nil
}

// AdminUpdateCustomer overwrites the profile of a customer. Email uniqueness
// is left to the store.
func (s *AuthService) AdminUpdateCustomer(ctx context.Context, id int64, req *CustomerRequest) (*models.PublicUser, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.AdminUpdateCustomer")
	defer span.End()

	if err := checkBinding(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation(msgNameRequired)
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	applyProfile(user, req)
	if err := s.users.UpdateUserProfile(ctx, user); err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	public := user.Public()
	return &public, nil
}

// AdminDeleteCustomer hard-deletes a customer; orders keep their snapshot
func (s *AuthService) AdminDeleteCustomer(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "AuthService.AdminDeleteCustomer")
	defer span.End()

	if err := s.users.DeleteUser(ctx, id); err != nil {
		return storeError(err, msgUserNotFound)
	}

	s.logger.Info("Customer deleted", zap.Int64("user_id", id))
	return nil
}

// EnsureAdmin creates the bootstrap admin or brings an existing account's
// role and password in line with the configured ones
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		s.logger.Warn("Admin bootstrap skipped, ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	if user != nil && user.Role == models.RoleAdmin &&
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if user != nil {
		if err := s.users.UpdateUserCredentials(ctx, user.ID, models.RoleAdmin, string(hash)); err != nil {
			return fmt.Errorf("failed to promote admin: %w", err)
		}
		s.logger.Info("Admin account updated", zap.Int64("user_id", user.ID))
		return nil
	}

	admin := &models.User{
		Name:           defaultAdminName,
		Email:          email,
		PasswordHash:   string(hash),
		Role:           models.RoleAdmin,
		EmailConfirmed: true,
	}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("Admin account created", zap.Int64("user_id", admin.ID))
	return nil
}

func (s *AuthService) checkUnique(ctx context.Context, email string, cpf *string) error {
	if email != "" {
		exists, err := s.users.EmailExists(ctx, email)
		if err != nil {
			return storeError(err, msgUserNotFound)
		}
		if exists {
			return apperr.New(apperr.KindDuplicateEmail, msgEmailInUse)
		}
	}
	if cpf != nil {
		exists, err := s.users.CPFExists(ctx, *cpf)
		if err != nil {
			return storeError(err, msgUserNotFound)
		}
		if exists {
			return apperr.New(apperr.KindDuplicateCPF, msgCPFInUse)
		}
	}
	return nil
}

func (s *AuthService) sendConfirmation(ctx context.Context, user *models.User, code string, expiresAt time.Time) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendConfirmation(ctx, user, code, expiresAt); err != nil {
		util.NotificationsFailedTotal.WithLabelValues("email_confirmation").Inc()
		s.logger.Error("Failed to send confirmation email",
			zap.Int64("user_id", user.ID),
			zap.Error(err))
	}
}

func (s *AuthService) throwawayHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate credential: %w", err)
	}
	// 64 hex chars, under bcrypt's 72 byte input limit
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(hash), nil
}

func applyProfile(user *models.User, req *CustomerRequest) {
	user.Name = strings.TrimSpace(req.Name)
	user.Email = normalizeEmail(req.Email)
	user.Phone = strings.TrimSpace(req.Phone)
	user.CPF = optional(req.CPF)
	user.Address = req.Address
	user.City = req.City
	user.State = req.State
	user.Zip = req.Zip
	user.Notes = req.Notes
}

// generateConfirmationCode returns a uniformly random 6-digit code
func generateConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
