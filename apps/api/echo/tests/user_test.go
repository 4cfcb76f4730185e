package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/tshilobo/soko/apps/api/echo"
	"github.com/tshilobo/soko/core/user"
)

func Test_userApi_login(t *testing.T) {
	ta := setup(t)

	ta.createUser(t, "Awe", "awe001", "awe@test.cd", "LordOfTheRings", []string{user.RoleStudent}, true)
	ta.createUser(t, "Naughty", "ndog", "ndog@test.cd", "LordOfTheRings", []string{user.RoleStudent}, false)

	tests := []httpTest{
		{
			name: "empty body", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", body: marchallObj(t, LoginRequest{Username: "lol", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Username: "awe001", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, LoginRequest{Username: "ndog", Password: "LordOfTheRings"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			ta.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("username login", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marchallObj(t, LoginRequest{Username: "awe001", Password: "LordOfTheRings"}))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotEmpty(t, res.Token)
	})

	t.Run("email login", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marchallObj(t, LoginRequest{Username: "AWE@test.cd", Password: "LordOfTheRings"}))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotEmpty(t, res.Token)
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	ta := setup(t)
	usr := ta.createUser(t, "Awe", "awe001", "awe@test.cd", "LordOfTheRings", []string{user.RoleStudent}, true)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/token-refresh")
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("refresh ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotEmpty(t, res.Token)
	})
}

func Test_userApi_userQuery(t *testing.T) {
	ta := setup(t)

	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	instructor := ta.createUser(t, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleInstructor}, true)
	admin := ta.createUser(t, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "get all", path: "/v1/users", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, admin, instructor, student),
		},
		{
			name: "search", path: "/v1/users?search=hero", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, student),
		},
		{
			name: "role filter", path: "/v1/users?role=instructor:", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, instructor),
		},
		{
			name: "ordering by known column", path: "/v1/users?ordering=username", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, admin, instructor, student),
		},
		{
			name: "ordering by unknown column rejected", path: "/v1/users?ordering=password_hash", token: adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"ordering": `cannot order by "password_hash"`}),
		},
		{
			name: "roles endpoint", path: "/v1/users/roles", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			ta.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	ta := setup(t)
	admin := ta.createUser(t, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	t.Run("role escalation rejected", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name: "Boss", Username: "boss01", Email: "boss@test.cd",
			Password: "LordOfTheRings", PasswordConfirm: "LordOfTheRings",
			Roles: []string{user.RoleAdminOwner},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		}, rec)
	})

	t.Run("register ok", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name: "Kid", Username: "kiddo01", Email: "kid@test.cd",
			Password: "LordOfTheRings", PasswordConfirm: "LordOfTheRings",
			Roles: []string{user.RoleStudent},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var usr user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.Equal(t, "kiddo01", usr.Username)
		assert.True(t, usr.IsActive)
	})

	t.Run("duplicate username", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name: "Kid Two", Username: "kiddo01", Email: "kid2@test.cd",
			Password: "LordOfTheRings", PasswordConfirm: "LordOfTheRings",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_userApi_detail(t *testing.T) {
	ta := setup(t)

	usr := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	other := ta.createUser(t, "Other", "other01", "other@test.cd", "", []string{user.RoleStudent}, true)
	admin := ta.createUser(t, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{
			name: "own detail", path: "/v1/users/" + usr.ID, token: getToken(t, usr),
			wantCode: http.StatusOK, wantData: marchallObj(t, usr),
		},
		{
			name: "other's detail forbidden", path: "/v1/users/" + other.ID, token: getToken(t, usr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "admin can see any", path: "/v1/users/" + other.ID, token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
		{
			name: "unknown user", path: "/v1/users/lol", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			ta.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("self update cannot touch roles", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, getToken(t, usr), body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	t.Run("self update name", func(t *testing.T) {
		body := []byte(`{"name": "Hero Mwamba"}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, getToken(t, usr), body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var updated user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Hero Mwamba", updated.Name)

		// unset fields keep their stored values
		assert.True(t, updated.IsActive)
		assert.Equal(t, usr.Roles, updated.Roles)
		assert.Equal(t, usr.Username, updated.Username)
		assert.Equal(t, usr.Email, updated.Email)

		// the password hash must survive a name-only update
		body = marchallObj(t, LoginRequest{Username: usr.Username, Password: "s3cr3t"})
		req, rec = newRequest(http.MethodPost, "/v1/users/login", body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
