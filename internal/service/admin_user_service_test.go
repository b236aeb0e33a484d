package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/model"
)

type adminFixture struct {
	svc      *AdminUserService
	auth     *AuthService
	users    *fakeUsers
	sessions *fakeSessions
	audit    *fakeAudit
	admin    model.Principal
	manager  model.Principal
	student  model.Principal
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	auth, users, sessions, audit := newAuthFixture()
	f := &adminFixture{
		svc:      NewAdminUserService(users, auth, audit, zerolog.Nop()),
		auth:     auth,
		users:    users,
		sessions: sessions,
		audit:    audit,
	}

	mk := func(name, email string, role model.Role) model.Principal {
		u, err := auth.CreateUser(context.Background(), testTenant, name, email, "password1", role)
		if err != nil {
			t.Fatalf("CreateUser %s: %v", email, err)
		}
		return model.Principal{UserID: u.ID, TenantID: u.TenantID, Role: u.Role}
	}
	f.admin = mk("Root", "root@example.com", model.RoleAdmin)
	f.manager = mk("Mona", "mona@example.com", model.RoleManager)
	f.student = mk("Sam", "sam@example.com", model.RoleStudent)
	return f
}

func (f *adminFixture) login(t *testing.T, email string) *model.LoginResponse {
	t.Helper()
	res, err := f.auth.Login(context.Background(), &model.LoginRequest{Email: email, Password: "password1"})
	if err != nil {
		t.Fatalf("Login %s: %v", email, err)
	}
	return res
}

func TestAdminListUsers(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	if _, err := f.auth.CreateUser(ctx, "other", "Olga", "olga@example.com", "password1", model.RoleStudent); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	inactive := false

	tests := []struct {
		name   string
		p      model.Principal
		filter model.UserFilter
		want   int
		err    error
	}{
		{"manager sees tenant only", f.manager, model.UserFilter{}, 3, nil},
		{"role filter", f.admin, model.UserFilter{Role: model.RoleStudent}, 1, nil},
		{"search by email", f.admin, model.UserFilter{Search: "  MONA "}, 1, nil},
		{"inactive filter", f.admin, model.UserFilter{IsActive: &inactive}, 0, nil},
		{"student forbidden", f.student, model.UserFilter{}, 0, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, pg, err := f.svc.List(ctx, tt.p, tt.filter, 0, 0)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if tt.err != nil {
				return
			}
			if len(users) != tt.want || pg.TotalItems != tt.want {
				t.Errorf("got %d users (total %d), want %d", len(users), pg.TotalItems, tt.want)
			}
		})
	}
}

func TestAdminGetUserAccess(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	outsider, err := f.auth.CreateUser(ctx, "other", "Olga", "olga@example.com", "password1", model.RoleStudent)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tests := []struct {
		name   string
		p      model.Principal
		target model.Principal
		err    error
	}{
		{"self", f.student, f.student, nil},
		{"manager reads student", f.manager, f.student, nil},
		{"student reads manager", f.student, f.manager, ErrForbidden},
		{"other tenant", f.admin, model.Principal{UserID: outsider.ID}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := f.svc.Get(ctx, tt.target.UserID, tt.p)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if err == nil && u.ID != tt.target.UserID {
				t.Errorf("got user %s", u.ID)
			}
		})
	}
}

func TestAdminCreateUser(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	req := &model.CreateUserRequest{Name: "Tia", Email: "tia@example.com", Password: "password1", Role: model.RoleTeacher}

	if _, err := f.svc.Create(ctx, f.manager, req); !errors.Is(err, ErrForbidden) {
		t.Fatalf("manager create err = %v, want ErrForbidden", err)
	}

	u, err := f.svc.Create(ctx, f.admin, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.TenantID != testTenant || u.Role != model.RoleTeacher || !u.IsActive {
		t.Errorf("created = %+v", u)
	}
	if _, err := f.svc.Create(ctx, f.admin, req); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate err = %v, want ErrEmailTaken", err)
	}
	if got := f.audit.actions(); len(got) != 1 || got[0] != model.AuditActionCreate {
		t.Errorf("audit actions = %v", got)
	}
}

func TestAdminUpdateUserPermissions(t *testing.T) {
	name := "Renamed"
	teacher := model.RoleTeacher
	admin := model.RoleAdmin
	off := false

	tests := []struct {
		name   string
		caller func(f *adminFixture) model.Principal
		target func(f *adminFixture) model.Principal
		req    model.UpdateUserRequest
		err    error
	}{
		{"owner renames", func(f *adminFixture) model.Principal { return f.student }, func(f *adminFixture) model.Principal { return f.student }, model.UpdateUserRequest{Name: &name}, nil},
		{"owner cannot promote", func(f *adminFixture) model.Principal { return f.student }, func(f *adminFixture) model.Principal { return f.student }, model.UpdateUserRequest{Role: &teacher}, ErrForbidden},
		{"manager cannot edit others", func(f *adminFixture) model.Principal { return f.manager }, func(f *adminFixture) model.Principal { return f.student }, model.UpdateUserRequest{Name: &name}, ErrForbidden},
		{"admin promotes", func(f *adminFixture) model.Principal { return f.admin }, func(f *adminFixture) model.Principal { return f.student }, model.UpdateUserRequest{Role: &teacher}, nil},
		{"admin keeps own role", func(f *adminFixture) model.Principal { return f.admin }, func(f *adminFixture) model.Principal { return f.admin }, model.UpdateUserRequest{Role: &admin, Name: &name}, nil},
		{"admin cannot demote self", func(f *adminFixture) model.Principal { return f.admin }, func(f *adminFixture) model.Principal { return f.admin }, model.UpdateUserRequest{Role: &teacher}, ErrForbidden},
		{"admin cannot disable self", func(f *adminFixture) model.Principal { return f.admin }, func(f *adminFixture) model.Principal { return f.admin }, model.UpdateUserRequest{IsActive: &off}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdminFixture(t)
			caller, target := tt.caller(f), tt.target(f)
			req := tt.req

			u, err := f.svc.Update(context.Background(), target.UserID, caller, &req)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if err != nil {
				return
			}
			if req.Name != nil && u.Name != name {
				t.Errorf("name = %q", u.Name)
			}
			if req.Role != nil && u.Role != *req.Role {
				t.Errorf("role = %s, want %s", u.Role, *req.Role)
			}
		})
	}
}

func TestAdminUpdatePasswordAllowsNewLogin(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	pass := "new-password"

	if _, err := f.svc.Update(ctx, f.student.UserID, f.student, &model.UpdateUserRequest{Password: &pass}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := f.auth.Login(ctx, &model.LoginRequest{Email: "sam@example.com", Password: "password1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := f.auth.Login(ctx, &model.LoginRequest{Email: "sam@example.com", Password: pass}); err != nil {
		t.Errorf("new password login: %v", err)
	}
}

func TestAdminRoleChangeRevokesSessions(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	session := f.login(t, "sam@example.com")
	teacher := model.RoleTeacher

	if _, err := f.svc.Update(ctx, f.student.UserID, f.admin, &model.UpdateUserRequest{Role: &teacher}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, _, err := f.auth.Authenticate(ctx, session.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("token after role change err = %v, want ErrSessionRevoked", err)
	}

	// A fresh login carries the new role.
	_, p, err := f.auth.Authenticate(ctx, f.login(t, "sam@example.com").Token)
	if err != nil || p.Role != model.RoleTeacher {
		t.Errorf("principal = %+v, %v", p, err)
	}
}

func TestAdminDeactivateUser(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	session := f.login(t, "sam@example.com")

	if err := f.svc.Deactivate(ctx, f.student.UserID, f.manager); !errors.Is(err, ErrForbidden) {
		t.Fatalf("manager deactivate err = %v, want ErrForbidden", err)
	}
	if err := f.svc.Deactivate(ctx, f.admin.UserID, f.admin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self deactivate err = %v, want ErrForbidden", err)
	}

	if err := f.svc.Deactivate(ctx, f.student.UserID, f.admin); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if f.users.byID[f.student.UserID].IsActive {
		t.Error("user still active")
	}
	if _, _, err := f.auth.Authenticate(ctx, session.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("access token err = %v, want ErrSessionRevoked", err)
	}
	if _, err := f.auth.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("refresh err = %v, want ErrSessionRevoked", err)
	}
	if _, err := f.auth.Login(ctx, &model.LoginRequest{Email: "sam@example.com", Password: "password1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("login err = %v, want ErrInvalidCredentials", err)
	}

	// Repeating is a no-op and records nothing new.
	before := len(f.audit.actions())
	if err := f.svc.Deactivate(ctx, f.student.UserID, f.admin); err != nil {
		t.Fatalf("second Deactivate: %v", err)
	}
	if got := f.audit.actions(); len(got) != before || got[len(got)-1] != model.AuditActionDelete {
		t.Errorf("audit actions = %v", got)
	}
}
