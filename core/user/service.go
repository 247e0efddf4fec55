package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("user not found")
	ErrEmailExists  = errors.New("a user with this email already exists")
	ErrPhoneExists  = errors.New("a user with this phone number already exists")
	errInvalidValue = "invalid value"
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists or ErrPhoneExists if another user holds `email` or `phone`.
		CheckEmailUniqueness(ctx context.Context, email, phone string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Email, User.FirstName or User.LastName.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		GetUsersByID(ctx context.Context, ids []string) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  tokenGenerator
		logger  core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens:  newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		logger:  logger,
	}
}

func (svc *Service) CheckUniqueness(email, phone string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, phone, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrEmailExists:
			field = "email"
		case ErrPhoneExists:
			field = "phone"
		default:
			return errors.Wrap(err, "checking user uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	usr := User{
		Email:     nu.Email,
		Phone:     nu.Phone,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// GetManyByID returns the users with the given ids; it fails with ErrNotFound if any id is unknown.
func (svc *Service) GetManyByID(ctx context.Context, ids []string) ([]User, error) {
	ids = core.UniqueStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := svc.repo.GetUsersByID(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "finding users by ID")
	}
	if len(users) != len(ids) {
		return nil, ErrNotFound
	}
	return users, nil
}

// Authenticate checks the credentials of an active user and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	if !usr.IsActive {
		return usr, nil
	}
	return svc.SetLastLogin(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC().Truncate(time.Microsecond)
	return svc.repo.UpdateUser(ctx, usr)
}

// Save updates or creates a user, used by the admin CLI.
func (svc *Service) Save(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	usr.UpdatedAt = now
	if usr.ID == "" {
		usr.CreatedAt = now
		return svc.repo.CreateUser(ctx, usr)
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset mails a password reset link to the active user owning `email`.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{usr.Address()},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name": usr.FullName(),
			"Path": fmt.Sprintf("/password-reset/%s/%s", EncodeUID(usr), token),
		},
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	uid, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "uid", Error: errInvalidValue})
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "uid", Error: errInvalidValue})
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: errInvalidValue})
	}
	if _, err = svc.SetPassword(ctx, usr, data.Password); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return nil
}
