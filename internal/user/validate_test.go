package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/otabek-olimov/uzshop-backend/internal/models"
)

// fakeChecker implements AccountChecker over in-memory maps.
type fakeChecker struct {
	usernames   map[string]bool
	emails      map[string]bool
	emailOwners map[string]string // email -> owning user ID
	phoneOwners map[string]string // phone -> owning user ID
	users       map[string]*models.User
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{
		usernames:   map[string]bool{},
		emails:      map[string]bool{},
		emailOwners: map[string]string{},
		phoneOwners: map[string]string{},
		users:       map[string]*models.User{},
	}
}

func (f *fakeChecker) UsernameExists(_ context.Context, username string) (bool, error) {
	return f.usernames[username], nil
}

func (f *fakeChecker) EmailExists(_ context.Context, email string) (bool, error) {
	return f.emails[email], nil
}

func (f *fakeChecker) EmailTakenByOther(_ context.Context, email, excludeID string) (bool, error) {
	owner, ok := f.emailOwners[email]
	return ok && owner != excludeID, nil
}

func (f *fakeChecker) PhoneTakenByOther(_ context.Context, phone, excludeID string) (bool, error) {
	owner, ok := f.phoneOwners[phone]
	return ok && owner != excludeID, nil
}

func (f *fakeChecker) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return f.users[username], nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestValidateRegister(t *testing.T) {
	checker := newFakeChecker()
	checker.usernames["taken_user"] = true
	checker.emails["taken@gmail.com"] = true

	valid := models.RegisterForm{
		Username:  "fresh_user",
		Email:     "fresh@gmail.com",
		Password1: "pw",
		Password2: "pw",
	}

	tests := []struct {
		name     string
		mutate   func(f *models.RegisterForm)
		field    string
		expected string
	}{
		{"duplicate username", func(f *models.RegisterForm) { f.Username = "taken_user" },
			"username", "Username already exists"},
		{"short username", func(f *models.RegisterForm) { f.Username = "abcd" },
			"username", "Username must be at least 5 characters long"},
		{"duplicate email", func(f *models.RegisterForm) { f.Email = "taken@gmail.com" },
			"email", "Email address already exists"},
		{"disallowed domain", func(f *models.RegisterForm) { f.Email = "fresh@hotmail.com" },
			"email", "Email must be from gmail.com, yandex.com or mail.ru"},
		{"yandex.ru not allowed at registration", func(f *models.RegisterForm) { f.Email = "fresh@yandex.ru" },
			"email", "Email must be from gmail.com, yandex.com or mail.ru"},
		{"password mismatch", func(f *models.RegisterForm) { f.Password2 = "other" },
			"password2", "Passwords must match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid
			tt.mutate(&form)
			errs, err := ValidateRegister(context.Background(), checker, form)
			require.NoError(t, err)
			require.True(t, errs.Has(tt.field))
			assert.Contains(t, errs[tt.field], tt.expected)
		})
	}

	t.Run("valid form", func(t *testing.T) {
		for _, email := range []string{"a@gmail.com", "b@mail.ru", "c@yandex.com"} {
			form := valid
			form.Email = email
			errs, err := ValidateRegister(context.Background(), checker, form)
			require.NoError(t, err)
			assert.True(t, errs.Empty(), "unexpected errors for %s: %v", email, errs)
		}
	})
}

func TestValidateLogin(t *testing.T) {
	checker := newFakeChecker()
	checker.users["otabek"] = &models.User{
		ID:       "u1",
		Username: "otabek",
		Password: hash(t, "Secret99"),
	}

	t.Run("unknown username", func(t *testing.T) {
		u, errs, err := ValidateLogin(context.Background(), checker, models.LoginForm{
			Username: "alice123", Password: "Secret99",
		})
		require.NoError(t, err)
		assert.Nil(t, u)
		assert.Contains(t, errs["username"], "Username does not exist")
	})

	t.Run("incorrect password", func(t *testing.T) {
		u, errs, err := ValidateLogin(context.Background(), checker, models.LoginForm{
			Username: "otabek", Password: "wrong",
		})
		require.NoError(t, err)
		assert.Nil(t, u)
		assert.Contains(t, errs["password"], "Incorrect password")
	})

	t.Run("success resolves the user", func(t *testing.T) {
		u, errs, err := ValidateLogin(context.Background(), checker, models.LoginForm{
			Username: "otabek", Password: "Secret99",
		})
		require.NoError(t, err)
		require.True(t, errs.Empty())
		require.NotNil(t, u)
		assert.Equal(t, "u1", u.ID)
	})
}

func TestValidatePasswordChange(t *testing.T) {
	u := &models.User{ID: "u1", Password: hash(t, "old1234")}

	t.Run("incorrect current password", func(t *testing.T) {
		errs := ValidatePasswordChange(u, models.PasswordChangeForm{
			Current: "nope", New: "longenough", Confirm: "longenough",
		})
		assert.Contains(t, errs["current_password"], "Current password is incorrect")
	})

	t.Run("new password too short", func(t *testing.T) {
		errs := ValidatePasswordChange(u, models.PasswordChangeForm{
			Current: "old1234", New: "short", Confirm: "short",
		})
		assert.Contains(t, errs["new_password"], "New password must be at least 8 characters long")
	})

	t.Run("confirmation mismatch", func(t *testing.T) {
		errs := ValidatePasswordChange(u, models.PasswordChangeForm{
			Current: "old1234", New: "longenough", Confirm: "different",
		})
		assert.Contains(t, errs["confirm_new_password"], "New passwords do not match")
	})

	t.Run("valid change", func(t *testing.T) {
		errs := ValidatePasswordChange(u, models.PasswordChangeForm{
			Current: "old1234", New: "longenough", Confirm: "longenough",
		})
		assert.True(t, errs.Empty())
	})
}

func TestValidateProfilePhone(t *testing.T) {
	checker := newFakeChecker()
	checker.phoneOwners["+998901234567"] = "other-user"

	validPhones := []string{
		"+998911234567",
		"+998 91 123 45 67",
		"+998-33-123-45-67",
		"+99871 123 45 67",
	}
	for _, phone := range validPhones {
		t.Run("valid "+phone, func(t *testing.T) {
			errs, err := ValidateProfile(context.Background(), checker, "me", models.ProfileForm{Phone: phone})
			require.NoError(t, err)
			assert.True(t, errs.Empty(), "errors: %v", errs)
		})
	}

	invalidPhones := []string{
		"+998921234567",  // 92 is not a known operator prefix
		"+99890123456",   // one digit short
		"+9989012345678", // one digit long
		"998901234567",   // missing plus
		"+7 900 123 45 67",
		"+998_90_123_45_67",
	}
	for _, phone := range invalidPhones {
		t.Run("invalid "+phone, func(t *testing.T) {
			errs, err := ValidateProfile(context.Background(), checker, "me", models.ProfileForm{Phone: phone})
			require.NoError(t, err)
			assert.Contains(t, errs["phone"], "Phone number is not in the expected format")
		})
	}

	t.Run("phone held by another user", func(t *testing.T) {
		errs, err := ValidateProfile(context.Background(), checker, "me", models.ProfileForm{Phone: "+998901234567"})
		require.NoError(t, err)
		assert.Contains(t, errs["phone"], "This phone number is already in use")
	})

	t.Run("own phone is not a collision", func(t *testing.T) {
		errs, err := ValidateProfile(context.Background(), checker, "other-user", models.ProfileForm{Phone: "+998901234567"})
		require.NoError(t, err)
		assert.True(t, errs.Empty())
	})

	t.Run("empty phone skips every check", func(t *testing.T) {
		errs, err := ValidateProfile(context.Background(), checker, "me", models.ProfileForm{})
		require.NoError(t, err)
		assert.True(t, errs.Empty())
	})
}

func TestValidateProfileEmail(t *testing.T) {
	checker := newFakeChecker()
	checker.emailOwners["held@gmail.com"] = "other-user"

	t.Run("profile list differs from registration list", func(t *testing.T) {
		// yandex.ru is allowed here but not at registration; yandex.com the reverse.
		errs, err := ValidateProfile(context.Background(), checker, "me", models.ProfileForm{Email: "a@yandex.ru"})
		require.NoError(t, err)
		assert.True(t, errs.Empty())

		errs, err = ValidateProfile(context.Background(), checker, "me", models.ProfileForm{Email: "a@yandex.com"})
		require.NoError(t, err)
		assert.True(t, errs.Has("email"))
	})

	t.Run("email held by another user", func(t *testing.T) {
		errs, err := ValidateProfile(context.Background(), checker, "me", models.ProfileForm{Email: "held@gmail.com"})
		require.NoError(t, err)
		assert.Contains(t, errs["email"], "This email is already in use")
	})

	t.Run("own email is not a collision", func(t *testing.T) {
		errs, err := ValidateProfile(context.Background(), checker, "other-user", models.ProfileForm{Email: "held@gmail.com"})
		require.NoError(t, err)
		assert.True(t, errs.Empty())
	})
}
