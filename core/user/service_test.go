package user_test

import (
	"context"
	"io/ioutil"
	"log"
	"testing"

	"github.com/pkg/errors"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/user"
	emailsvc "github.com/akilisha/funzo/services/email"
	dummydb "github.com/akilisha/funzo/storage/database/dummy"
)

func newService(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening db; %v", err)
	}
	repo := dummydb.NewUserRepository(db)
	logger := core.NewStdLogger(log.New(ioutil.Discard, "", 0))
	return user.NewService(repo, emailsvc.NewConsoleServiceMock(), logger), repo
}

// failingUserRepo simulates an unreachable profile store.
type failingUserRepo struct {
	user.Repository
}

func (r failingUserRepo) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	return user.User{}, errors.New("connection refused")
}

func TestService_Register(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	// self-registration never yields a privileged account
	usr, err := svc.Register(ctx, user.NewUser{
		Name:     "Awa Student",
		Username: "awa123",
		Email:    "awa@test.funzo.app",
		Password: "LongSecret##1",
		Role:     user.RoleTutor,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if usr.Role != user.RoleStudent {
		t.Errorf("Role = %s, want %s", usr.Role, user.RoleStudent)
	}
	if usr.IsActive == nil || !*usr.IsActive {
		t.Error("new account not active")
	}
	if len(usr.PasswordHash) == 0 {
		t.Error("password not hashed")
	}
	if err = usr.CheckPassword("LongSecret##1"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}
}

func TestNewUser_Validate_uniqueness(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, user.NewUser{
		Name:     "Awa Student",
		Username: "awa123",
		Email:    "awa@test.funzo.app",
		Password: "LongSecret##1",
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name      string
		nu        user.NewUser
		wantField string
	}{
		{
			name: "duplicate username",
			nu: user.NewUser{
				Name: "Imposter", Username: "awa123", Email: "other@test.funzo.app",
				Password: "LongSecret##1", PasswordConfirm: "LongSecret##1",
			},
			wantField: "username",
		},
		{
			name: "duplicate email",
			nu: user.NewUser{
				Name: "Imposter", Username: "other1", Email: "awa@test.funzo.app",
				Password: "LongSecret##1", PasswordConfirm: "LongSecret##1",
			},
			wantField: "email",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(svc)
			if err == nil {
				t.Fatal("Validate() expected an error, got nil")
			}
			vErr, ok := err.(*core.ValidationError)
			if !ok {
				t.Fatalf("error type = %T, want *core.ValidationError", err)
			}
			if len(vErr.Fields) != 1 || vErr.Fields[0].Field != tt.wantField {
				t.Errorf("fields = %+v, want one error on %q", vErr.Fields, tt.wantField)
			}
		})
	}
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("existing profile", func(t *testing.T) {
		svc, _ := newService(t)
		usr, err := svc.Create(ctx, user.NewUser{
			Name: "Tutu Tutor", Username: "tutu12", Email: "tutu@test.funzo.app",
			Password: "LongSecret##1", Role: user.RoleTutor,
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		ident, err := svc.Resolve(ctx, user.Principal{ID: usr.ID, Name: usr.Name, Email: usr.Email})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if ident.ID != usr.ID || ident.Role != user.RoleTutor || !ident.Privileged {
			t.Errorf("Identity = %+v", ident)
		}
	})

	t.Run("first sign-in creates a default student", func(t *testing.T) {
		svc, _ := newService(t)
		principal := user.Principal{ID: "ext-123", Name: "New Kid", Email: "Kid@Test.Funzo.App"}

		ident, err := svc.Resolve(ctx, principal)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if ident.Role != user.RoleStudent || ident.Privileged {
			t.Errorf("Identity = %+v, want an unprivileged student", ident)
		}

		usr, err := svc.GetByID(ctx, principal.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if usr.Name != principal.Name {
			t.Errorf("Name = %q, want %q", usr.Name, principal.Name)
		}
		if usr.Email != "kid@test.funzo.app" {
			t.Errorf("Email = %q, want it lowercased", usr.Email)
		}
		if usr.IsActive == nil || !*usr.IsActive {
			t.Error("default profile not active")
		}

		// resolving again reuses the profile
		if _, err = svc.Resolve(ctx, principal); err != nil {
			t.Errorf("second Resolve() error = %v", err)
		}
	})

	t.Run("bootstrap tutor", func(t *testing.T) {
		svc, _ := newService(t)
		orig := core.Conf.BootstrapTutorID
		core.Conf.BootstrapTutorID = "ext-tutor-1"
		defer func() { core.Conf.BootstrapTutorID = orig }()

		ident, err := svc.Resolve(ctx, user.Principal{ID: "ext-tutor-1", Name: "First Tutor"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if ident.Role != user.RoleTutor || !ident.Privileged {
			t.Errorf("Identity = %+v, want a privileged tutor", ident)
		}
	})

	t.Run("store unavailable", func(t *testing.T) {
		logger := core.NewStdLogger(log.New(ioutil.Discard, "", 0))
		svc := user.NewService(failingUserRepo{}, emailsvc.NewConsoleServiceMock(), logger)

		_, err := svc.Resolve(ctx, user.Principal{ID: "ext-123"})
		if errors.Cause(err) != user.ErrIdentityUnavailable {
			t.Errorf("Resolve() error = %v, want %v", err, user.ErrIdentityUnavailable)
		}
	})
}

func TestService_SetLastLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Name: "Awa Student", Username: "awa123", Email: "awa@test.funzo.app",
		Password: "LongSecret##1",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.SetLastLogin(ctx, usr)
	if err != nil {
		t.Fatalf("SetLastLogin() error = %v", err)
	}
	if updated.LastLogin.IsZero() {
		t.Error("LastLogin not set")
	}
	// a partial update must not wipe the rest of the profile
	if updated.Name != usr.Name || updated.Email != usr.Email || updated.IsActive == nil || !*updated.IsActive {
		t.Errorf("profile after partial update: %+v", updated)
	}
}

func TestService_GetByUsernameOrEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Name: "Awa Student", Username: "awa123", Email: "awa@test.funzo.app",
		Password: "LongSecret##1",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, handle := range []string{"awa123", "AWA123", "awa@test.funzo.app", "Awa@Test.Funzo.App"} {
		got, err := svc.GetByUsernameOrEmail(ctx, handle)
		if err != nil {
			t.Errorf("GetByUsernameOrEmail(%q) error = %v", handle, err)
			continue
		}
		if got.ID != usr.ID {
			t.Errorf("GetByUsernameOrEmail(%q) = %s, want %s", handle, got.ID, usr.ID)
		}
	}

	if _, err = svc.GetByUsernameOrEmail(ctx, "nobody"); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("GetByUsernameOrEmail(nobody) error = %v, want %v", err, user.ErrNotFound)
	}
}
