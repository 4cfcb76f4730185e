package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tshilobo/soko/core/ebook"
	"github.com/tshilobo/soko/core/user"
)

func Test_ebookApi_publicCatalog(t *testing.T) {
	ta := setup(t)

	published := ta.createEbook(t, "Go in Action", ebook.FormatDigital, 100, true)
	draft := ta.createEbook(t, "Unreleased", ebook.FormatPrint, 120, false)

	t.Run("list shows published only", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/ebooks")
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var ebooks []ebook.Ebook
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ebooks))
		require.Len(t, ebooks, 1)
		assert.Equal(t, published.ID, ebooks[0].ID)
	})

	t.Run("detail", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/ebooks/"+published.ID)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("draft detail hidden", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/ebooks/"+draft.ID)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})
}

func Test_ebookApi_crud(t *testing.T) {
	ta := setup(t)

	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	admin := ta.createUser(t, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	newEb := ebook.NewEbook{
		Title:  "Distributed Systems",
		Author: "M. Kleppmann",
		Price:  250,
		Format: ebook.FormatPrint,
		Stock:  10,
	}

	t.Run("admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/ebooks", getToken(t, student), marchallObj(t, newEb))
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	var created ebook.Ebook
	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/ebooks", adminToken, marchallObj(t, newEb))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, "Distributed Systems", created.Title)
		assert.False(t, created.IsPublished)
	})

	t.Run("bad format rejected", func(t *testing.T) {
		bad := newEb
		bad.Format = "AUDIO"
		req, rec := newAuthRequest(http.MethodPost, "/v1/ebooks", adminToken, marchallObj(t, bad))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("publish", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/ebooks/"+created.ID, adminToken, []byte(`{"is_published": true}`))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var updated ebook.Ebook
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.True(t, updated.IsPublished)
	})

	t.Run("admin listing includes drafts", func(t *testing.T) {
		draft := ta.createEbook(t, "Draft", ebook.FormatDigital, 80, false)

		req, rec := newAuthRequest(http.MethodGet, "/v1/ebooks/all", adminToken)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var ebooks []ebook.Ebook
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ebooks))

		var ids []string
		for _, eb := range ebooks {
			ids = append(ids, eb.ID)
		}
		assert.Contains(t, ids, draft.ID)
		assert.Contains(t, ids, created.ID)
	})
}
