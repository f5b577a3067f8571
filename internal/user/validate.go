// Package user implements account management: registration, login/logout,
// profile and password updates, and profile photo uploads.
package user

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/otabek-olimov/uzshop-backend/internal/models"
)

// AccountChecker is the slice of the account store the validators need.
type AccountChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error)
	PhoneTakenByOther(ctx context.Context, phone, excludeID string) (bool, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Registration and profile updates accept different provider allow-lists.
var (
	registerEmailDomains = []string{"gmail.com", "mail.ru", "yandex.com"}
	profileEmailDomains  = []string{"gmail.com", "mail.ru", "yandex.ru"}
)

// phonePattern: +998, a known operator prefix, then 3-2-2 digits with
// optional single separators.
var phonePattern = regexp.MustCompile(
	`^\+998[- ]?(90|91|93|94|95|98|99|33|97|71)[- ]?\d{3}[- ]?\d{2}[- ]?\d{2}$`)

func emailDomainAllowed(email string, domains []string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, d := range domains {
		if domain == d {
			return true
		}
	}
	return false
}

// ValidateRegister checks a registration form. It returns either an empty
// FieldErrors (form is clean) or every field-level problem found; the form
// is never partially applied. The non-nil error return is for store
// failures only.
func ValidateRegister(ctx context.Context, accounts AccountChecker, f models.RegisterForm) (models.FieldErrors, error) {
	errs := models.FieldErrors{}

	taken, err := accounts.UsernameExists(ctx, f.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		errs.Add("username", "Username already exists")
	}
	if len(f.Username) < 5 {
		errs.Add("username", "Username must be at least 5 characters long")
	}

	taken, err = accounts.EmailExists(ctx, f.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		errs.Add("email", "Email address already exists")
	}
	if !emailDomainAllowed(f.Email, registerEmailDomains) {
		errs.Add("email", "Email must be from gmail.com, yandex.com or mail.ru")
	}

	if f.Password1 != f.Password2 {
		errs.Add("password2", "Passwords must match")
	}

	return errs, nil
}

// ValidateLogin resolves the username and verifies the password against the
// stored hash. On success the matching user is returned alongside empty
// FieldErrors.
func ValidateLogin(ctx context.Context, accounts AccountChecker, f models.LoginForm) (*models.User, models.FieldErrors, error) {
	errs := models.FieldErrors{}

	u, err := accounts.GetUserByUsername(ctx, f.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user %q: %w", f.Username, err)
	}
	if u == nil {
		errs.Add("username", "Username does not exist")
		return nil, errs, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(f.Password)) != nil {
		errs.Add("password", "Incorrect password")
		return nil, errs, nil
	}

	return u, errs, nil
}

// ValidatePasswordChange verifies the current password against the acting
// user's hash and applies the new-password rules.
func ValidatePasswordChange(u *models.User, f models.PasswordChangeForm) models.FieldErrors {
	errs := models.FieldErrors{}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(f.Current)) != nil {
		errs.Add("current_password", "Current password is incorrect")
	}
	if len(f.New) < 8 {
		errs.Add("new_password", "New password must be at least 8 characters long")
	}
	if f.Confirm != f.New {
		errs.Add("confirm_new_password", "New passwords do not match")
	}

	return errs
}

// ValidateProfile checks a profile-update form for the user with the given
// ID. Empty optional fields skip format and uniqueness checks entirely.
func ValidateProfile(ctx context.Context, accounts AccountChecker, userID string, f models.ProfileForm) (models.FieldErrors, error) {
	errs := models.FieldErrors{}

	if f.Phone != "" {
		if !phonePattern.MatchString(f.Phone) {
			errs.Add("phone", "Phone number is not in the expected format")
		} else {
			taken, err := accounts.PhoneTakenByOther(ctx, f.Phone, userID)
			if err != nil {
				return nil, fmt.Errorf("check phone: %w", err)
			}
			if taken {
				errs.Add("phone", "This phone number is already in use")
			}
		}
	}

	if f.Email != "" {
		if !emailDomainAllowed(f.Email, profileEmailDomains) {
			errs.Add("email", "Email must be from one of: "+strings.Join(profileEmailDomains, ", "))
		}
		taken, err := accounts.EmailTakenByOther(ctx, f.Email, userID)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			errs.Add("email", "This email is already in use")
		}
	}

	return errs, nil
}
