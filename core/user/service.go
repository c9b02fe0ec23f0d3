package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrAuthFailed         = core.NewUnauthorizedError("invalid email or password")
	ErrAccountDeactivated = core.NewForbiddenError("account deactivated")
	ErrInvalidResetLink   = core.NewValidationError(errors.New("invalid password reset link"),
		core.FieldError{Field: "token", Error: "invalid or expired password reset link"})
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		QueryUsersByID(ctx context.Context, ids ...string) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service interface {
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, creds Credentials) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		UpdateProfile(ctx context.Context, id string, up UpdateProfile) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		SetPassword(ctx context.Context, email, pwd string) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error)
		QueryContacts(ctx context.Context, ids ...string) ([]Contact, error)
	}

	Options struct {
		SecretKey                 string
		PasswordResetTimeoutDelta time.Duration
		FromEmail                 mail.Address
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, opts Options) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens:  tokenGenerator{secretKey: []byte(opts.SecretKey), timeout: opts.PasswordResetTimeoutDelta},
	}
}

func (svc *service) checkEmailUniqueness(ctx context.Context, email string) error {
	_, err := svc.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return emailExistsError()
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return errors.Wrap(err, "checking email uniqueness")
	}
}

func emailExistsError() error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(); err != nil {
		return User{}, err
	}
	if err := svc.checkEmailUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:          uuid.NewString(),
		Email:       nu.Email,
		DisplayName: nu.DisplayName,
		Phone:       nu.Phone,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return User{}, emailExistsError()
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (svc *service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	if err := creds.Validate(); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrAuthFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(creds.Password); err != nil {
		return User{}, ErrAuthFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) UpdateProfile(ctx context.Context, id string, up UpdateProfile) (User, error) {
	if err := up.Validate(); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if up.DisplayName != nil {
		usr.DisplayName = *up.DisplayName
	}
	if up.Phone != nil {
		usr.Phone = *up.Phone
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword sets the password of the User with the given email, bypassing the password policy.
func (svc *service) SetPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset mails a reset link to the User with the given email.
// Unknown or inactive emails are silently ignored.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !usr.IsActive {
		return nil
	}
	return svc.sendPasswordResetMail(usr)
}

func (svc *service) sendPasswordResetMail(usr User) error {
	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.DisplayName, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Email": usr.Email,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	if err := rp.Validate(); err != nil {
		return User{}, err
	}
	id, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, ErrInvalidResetLink
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidResetLink
		}
		return User{}, err
	}
	if err = svc.tokens.verifyToken(usr, rp.Token); err != nil {
		return User{}, ErrInvalidResetLink
	}
	if err = PasswordPolicyError(rp.Password, usr); err != nil {
		return User{}, err
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) QueryContacts(ctx context.Context, ids ...string) ([]Contact, error) {
	users, err := svc.repo.QueryUsersByID(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	contacts := make([]Contact, 0, len(users))
	for _, usr := range users {
		contacts = append(contacts, usr.Contact())
	}
	return contacts, nil
}
