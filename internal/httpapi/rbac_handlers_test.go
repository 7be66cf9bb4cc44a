package httpapi

import (
	"net/http"
	"testing"

	"authcore.org/internal/auth"
)

func TestRoleAssignLifecycle(t *testing.T) {
	api := newTestAPI(t)
	admin := api.seedUser("admin", "password-123")
	target := api.seedUser("bob", "password-123")
	role := api.seedRole("editor")
	api.login("admin", "password-123")

	// First assignment succeeds.
	resp := api.post("/api/roles/assign/", map[string]any{
		"user_id": target.ID,
		"role_id": role.ID,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	assignment, _ := body["assignment"].(map[string]any)
	if assignment["assigned_by"] != admin.ID {
		t.Fatalf("expected assigned_by to be the caller, got %v", assignment["assigned_by"])
	}

	// Second assignment of the same pair conflicts.
	resp = api.post("/api/roles/assign/", map[string]any{
		"user_id": target.ID,
		"role_id": role.ID,
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	body = decode[map[string]any](t, resp)
	if body["message"] != "role already assigned to user" {
		t.Fatalf("unexpected message: %v", body["message"])
	}

	// Removal succeeds, then a repeat removal is a 404.
	resp = api.do(http.MethodDelete, "/api/roles/assign/", map[string]any{
		"user_id": target.ID,
		"role_id": role.ID,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp = api.do(http.MethodDelete, "/api/roles/assign/", map[string]any{
		"user_id": target.ID,
		"role_id": role.ID,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAssignUnknownRole(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("admin", "password-123")
	target := api.seedUser("bob", "password-123")
	api.login("admin", "password-123")

	resp := api.post("/api/roles/assign/", map[string]any{
		"user_id": target.ID,
		"role_id": "no-such-role",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAssignInactiveRoleIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("admin", "password-123")
	target := api.seedUser("bob", "password-123")
	role := api.seedRole("retired")
	role.IsActive = false
	api.login("admin", "password-123")

	resp := api.post("/api/roles/assign/", map[string]any{
		"user_id": target.ID,
		"role_id": role.ID,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for inactive role, got %d", resp.StatusCode)
	}
}

func TestRoleCreateDuplicate(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("admin", "password-123")
	api.seedRole("editor")
	api.login("admin", "password-123")

	resp := api.post("/api/roles/create/", map[string]any{"name": "editor"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate role, got %d", resp.StatusCode)
	}
}

func TestDeactivateRoleHidesItFromResolution(t *testing.T) {
	api := newTestAPI(t)
	user := api.seedUser("alice", "password-123")
	role := api.seedRole("editor")
	api.login("alice", "password-123")

	resp := api.post("/api/roles/assign/", map[string]any{
		"user_id": user.ID,
		"role_id": role.ID,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("assign failed: %d", resp.StatusCode)
	}

	resp = api.get("/api/roles/user/", nil)
	body := decode[map[string]any](t, resp)
	roles, _ := body["roles"].([]any)
	if len(roles) != 1 {
		t.Fatalf("expected exactly one role, got %v", body["roles"])
	}

	resp = api.post("/api/roles/"+role.ID+"/deactivate/", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deactivate failed: %d", resp.StatusCode)
	}

	resp = api.get("/api/roles/user/", nil)
	body = decode[map[string]any](t, resp)
	if roles, _ := body["roles"].([]any); len(roles) != 0 {
		t.Fatalf("expected no roles after deactivation, got %v", body["roles"])
	}

	// The assignment row survives the deactivation.
	if _, ok := api.store.assignments[user.ID][role.ID]; !ok {
		t.Fatal("assignment should be retained after role deactivation")
	}
}

func TestRegisterLoginAssignResolve(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/auth/register/", map[string]any{
		"username": "newbie",
		"email":    "newbie@example.com",
		"password": "password-123",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: %d", resp.StatusCode)
	}

	login := api.login("newbie", "password-123")
	user, _ := login["user"].(map[string]any)
	userID, _ := user["id"].(string)
	if userID == "" {
		t.Fatal("expected user id in login payload")
	}

	// Fresh account has no roles.
	resp = api.get("/api/roles/user/", nil)
	body := decode[map[string]any](t, resp)
	if roles, _ := body["roles"].([]any); len(roles) != 0 {
		t.Fatalf("expected no roles for fresh user, got %v", body["roles"])
	}

	role := api.seedRole("editor")
	resp = api.post("/api/roles/assign/", map[string]any{
		"user_id": userID,
		"role_id": role.ID,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("assign failed: %d", resp.StatusCode)
	}

	resp = api.get("/api/roles/user/", nil)
	body = decode[map[string]any](t, resp)
	roles, _ := body["roles"].([]any)
	if len(roles) != 1 {
		t.Fatalf("expected exactly [editor], got %v", body["roles"])
	}
	first, _ := roles[0].(map[string]any)
	if first["name"] != "editor" {
		t.Fatalf("unexpected role: %v", first)
	}
}

func TestUserPermissionsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	user := api.seedUser("alice", "password-123")
	role := api.seedRole("editor")
	api.login("alice", "password-123")

	resp := api.post("/api/roles/assign/", map[string]any{
		"user_id": user.ID,
		"role_id": role.ID,
	}, nil)
	resp.Body.Close()

	api.store.mu.Lock()
	api.store.perms["manage_menus"] = auth.Permission{ID: "p1", Name: "Manage menus", Codename: "manage_menus"}
	api.store.rolePerms[role.ID] = []string{"manage_menus"}
	api.store.mu.Unlock()

	resp = api.get("/api/permissions/user/", nil)
	body := decode[map[string]any](t, resp)
	perms, _ := body["permissions"].([]any)
	if len(perms) != 1 || perms[0] != "manage_menus" {
		t.Fatalf("unexpected permissions: %v", body["permissions"])
	}
}
