package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"investtrack/internal/mail"
	"investtrack/internal/models"
	"investtrack/internal/testutil"
)

var otpPattern = regexp.MustCompile(`<strong>(\d{6})</strong>`)

type failingMailer struct{}

func (failingMailer) Send(context.Context, mail.Message) error { return errors.New("relay down") }

func newTestUserService(t *testing.T, db *gorm.DB, mailer mail.Mailer) *userService {
	t.Helper()
	return NewUserService(db, newTestAttachments(t, db), mailer, "boss@test.com").(*userService)
}

// wrongOTP returns a six digit code that differs from otp.
func wrongOTP(otp string) string {
	return string(rune('0'+(otp[0]-'0'+1)%10)) + otp[1:]
}

func lastOTP(t *testing.T, rec *mail.Recorder) string {
	t.Helper()
	m := otpPattern.FindStringSubmatch(rec.Last().HTML)
	if m == nil {
		t.Fatalf("no reset code in %q", rec.Last().HTML)
	}
	return m[1]
}

func TestRegister(t *testing.T) {
	t.Run("first_user_is_admin", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(t, db, &mail.Recorder{})

		first, err := svc.Register(ctx, "First", "First@Test.com", testutil.TestPassword)
		testutil.AssertNoError(t, err)
		if first.Role != models.RoleAdmin || first.Email != "first@test.com" {
			t.Errorf("unexpected first user %+v", first)
		}
		if first.Password == testutil.TestPassword {
			t.Error("expected hashed password")
		}

		second, err := svc.Register(ctx, "Second", "second@test.com", testutil.TestPassword)
		testutil.AssertNoError(t, err)
		if second.Role != models.RoleMember {
			t.Errorf("expected member role, got %s", second.Role)
		}

		boss, err := svc.Register(ctx, "Boss", "boss@test.com", testutil.TestPassword)
		testutil.AssertNoError(t, err)
		if boss.Role != models.RoleAdmin {
			t.Errorf("expected bootstrap admin, got %s", boss.Role)
		}
	})

	t.Run("concurrent_first_users_get_one_admin", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		sqlDB, err := db.DB()
		testutil.AssertNoError(t, err)
		sqlDB.SetMaxOpenConns(1)
		svc := newTestUserService(t, db, &mail.Recorder{})

		const n = 4
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Register(ctx, "User", string(rune('a'+i))+"@test.com", testutil.TestPassword)
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			testutil.AssertNoError(t, err)
		}

		if admins := countRows(t, db, &models.User{}, "role = ?", models.RoleAdmin); admins != 1 {
			t.Errorf("expected exactly one admin, found %d", admins)
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(t, db, &mail.Recorder{})
		testutil.CreateTestUserWithRole(t, db, "taken@test.com", models.RoleMember)

		_, err := svc.Register(ctx, "Dup", "TAKEN@test.com", testutil.TestPassword)
		testutil.AssertDuplicate(t, err, "email")
	})

	t.Run("weak_password", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(t, db, &mail.Recorder{})

		_, err := svc.Register(ctx, "Weak", "weak@test.com", "password")
		appErr := testutil.AssertAppError(t, err, "VALIDATION_ERROR")
		if appErr.Fields[0].Field != "password" {
			t.Errorf("expected password field, got %+v", appErr.Fields)
		}
	})
}

func TestLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestUserService(t, db, &mail.Recorder{})
	user := testutil.CreateTestUser(t, db)

	got, err := svc.Login(ctx, strings.ToUpper(user.Email), testutil.TestPassword)
	testutil.AssertNoError(t, err)
	if got.ID != user.ID || got.LastLoginAt == nil {
		t.Errorf("unexpected login result %+v", got)
	}

	_, err = svc.Login(ctx, user.Email, "Wr0ng!pass")
	testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	_, err = svc.Login(ctx, "ghost@test.com", testutil.TestPassword)
	testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
}

func TestUpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestUserService(t, db, &mail.Recorder{})
	user := testutil.CreateTestUser(t, db)

	updated, err := svc.UpdateProfile(ctx, user.ID, strPtr("Renamed"), pngUpload("me.png", 7))
	testutil.AssertNoError(t, err)
	if updated.Name != "Renamed" {
		t.Errorf("expected new name, got %q", updated.Name)
	}
	if !strings.HasPrefix(updated.Avatar, "data:image/png;base64,") {
		t.Errorf("expected inline png avatar, got %.40q", updated.Avatar)
	}

	_, err = svc.UpdateProfile(ctx, user.ID, nil, pdfUpload("me.pdf", 64))
	testutil.AssertAppError(t, err, "UNSUPPORTED_MEDIA_TYPE")
}

func TestUpdateRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestUserService(t, db, &mail.Recorder{})
	user := testutil.CreateTestUser(t, db)

	updated, err := svc.UpdateRole(ctx, user.ID, models.RoleAdmin)
	testutil.AssertNoError(t, err)
	if !updated.IsAdmin() {
		t.Error("expected admin role")
	}
	_, err = svc.UpdateRole(ctx, user.ID, "owner")
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")
}

func TestChangePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestUserService(t, db, &mail.Recorder{})
	user := testutil.CreateTestUser(t, db)
	const next = "N3w!Passw0rd"

	err := svc.ChangePassword(ctx, user.ID, "Wr0ng!pass", next, next)
	testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")

	err = svc.ChangePassword(ctx, user.ID, testutil.TestPassword, next, "different")
	appErr := testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	if appErr.Fields[0].Field != "confirm_password" {
		t.Errorf("expected confirm_password, got %+v", appErr.Fields)
	}

	testutil.AssertNoError(t, svc.ChangePassword(ctx, user.ID, testutil.TestPassword, next, next))
	_, err = svc.Login(ctx, user.Email, next)
	testutil.AssertNoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	t.Run("full_flow", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		rec := &mail.Recorder{}
		svc := newTestUserService(t, db, rec)
		user := testutil.CreateTestUser(t, db)
		const next = "R3set!Passw0rd"

		testutil.AssertNoError(t, svc.ForgotPassword(ctx, user.Email))
		if rec.Last().To != user.Email {
			t.Fatalf("expected mail to %s, got %+v", user.Email, rec.Last())
		}
		otp := lastOTP(t, rec)

		testutil.AssertNoError(t, svc.VerifyOTP(ctx, user.Email, otp))
		// Verifying does not consume the code.
		testutil.AssertNoError(t, svc.VerifyOTP(ctx, user.Email, otp))

		testutil.AssertNoError(t, svc.ResetPassword(ctx, user.Email, otp, next))
		if len(rec.Sent) != 2 {
			t.Errorf("expected confirmation mail, got %d messages", len(rec.Sent))
		}
		_, err := svc.Login(ctx, user.Email, next)
		testutil.AssertNoError(t, err)

		err = svc.ResetPassword(ctx, user.Email, otp, next)
		testutil.AssertAppError(t, err, "INVALID_RESET_TOKEN")
	})

	t.Run("new_code_replaces_old", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		rec := &mail.Recorder{}
		svc := newTestUserService(t, db, rec)
		user := testutil.CreateTestUser(t, db)

		testutil.AssertNoError(t, svc.ForgotPassword(ctx, user.Email))
		first := lastOTP(t, rec)
		testutil.AssertNoError(t, svc.ForgotPassword(ctx, user.Email))
		second := lastOTP(t, rec)

		if n := countRows(t, db, &models.Token{}, "user_id = ?", user.ID); n != 1 {
			t.Errorf("expected a single outstanding token, found %d", n)
		}
		if first != second {
			testutil.AssertAppError(t, svc.VerifyOTP(ctx, user.Email, first), "INVALID_RESET_TOKEN")
		}
		testutil.AssertNoError(t, svc.VerifyOTP(ctx, user.Email, second))
	})

	t.Run("repeated_wrong_codes_burn_the_token", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		rec := &mail.Recorder{}
		svc := newTestUserService(t, db, rec)
		user := testutil.CreateTestUser(t, db)

		testutil.AssertNoError(t, svc.ForgotPassword(ctx, user.Email))
		otp := lastOTP(t, rec)

		for i := 0; i < MaxOTPAttempts; i++ {
			testutil.AssertAppError(t, svc.VerifyOTP(ctx, user.Email, wrongOTP(otp)), "INVALID_RESET_TOKEN")
		}
		if n := countRows(t, db, &models.Token{}, "user_id = ?", user.ID); n != 0 {
			t.Errorf("expected the token to be dropped, found %d", n)
		}
		testutil.AssertAppError(t, svc.VerifyOTP(ctx, user.Email, otp), "INVALID_RESET_TOKEN")
		testutil.AssertAppError(t, svc.ResetPassword(ctx, user.Email, otp, "R3set!Passw0rd"), "INVALID_RESET_TOKEN")
	})

	t.Run("few_wrong_codes_are_tolerated", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		rec := &mail.Recorder{}
		svc := newTestUserService(t, db, rec)
		user := testutil.CreateTestUser(t, db)

		testutil.AssertNoError(t, svc.ForgotPassword(ctx, user.Email))
		otp := lastOTP(t, rec)

		for i := 0; i < MaxOTPAttempts-1; i++ {
			testutil.AssertAppError(t, svc.VerifyOTP(ctx, user.Email, wrongOTP(otp)), "INVALID_RESET_TOKEN")
		}
		var token models.Token
		testutil.AssertNoError(t, db.First(&token, "user_id = ?", user.ID).Error)
		if token.Attempts != MaxOTPAttempts-1 {
			t.Errorf("expected %d recorded attempts, got %d", MaxOTPAttempts-1, token.Attempts)
		}
		testutil.AssertNoError(t, svc.ResetPassword(ctx, user.Email, otp, "R3set!Passw0rd"))
	})

	t.Run("expired_code", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		rec := &mail.Recorder{}
		svc := newTestUserService(t, db, rec)
		user := testutil.CreateTestUser(t, db)

		testutil.AssertNoError(t, svc.ForgotPassword(ctx, user.Email))
		otp := lastOTP(t, rec)

		svc.now = func() time.Time { return time.Now().Add(ResetTokenTTL + time.Minute) }
		testutil.AssertAppError(t, svc.VerifyOTP(ctx, user.Email, otp), "INVALID_RESET_TOKEN")
	})

	t.Run("unknown_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(t, db, &mail.Recorder{})

		testutil.AssertAppError(t, svc.ForgotPassword(ctx, "ghost@test.com"), "USER_NOT_FOUND")
		testutil.AssertAppError(t, svc.VerifyOTP(ctx, "ghost@test.com", "123456"), "INVALID_RESET_TOKEN")
	})

	t.Run("mail_failure_is_reported", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(t, db, failingMailer{})
		user := testutil.CreateTestUser(t, db)

		testutil.AssertAppError(t, svc.ForgotPassword(ctx, user.Email), "INTERNAL_ERROR")
	})
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 20; i++ {
		otp, err := generateOTP()
		testutil.AssertNoError(t, err)
		if len(otp) != 6 || strings.Trim(otp, "0123456789") != "" {
			t.Fatalf("expected 6 digits, got %q", otp)
		}
	}
}
