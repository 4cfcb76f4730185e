package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/tshilobo/soko/apps/api/echo"
	"github.com/tshilobo/soko/core/coupon"
	"github.com/tshilobo/soko/core/ebook"
	"github.com/tshilobo/soko/core/order"
	"github.com/tshilobo/soko/core/user"
)

func Test_couponApi_validate(t *testing.T) {
	ta := setup(t)

	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	studentToken := getToken(t, student)

	ta.createCoupon(t, "promo10", coupon.TypePercentage, 10, nil)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/coupons/validate")
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("quote", func(t *testing.T) {
		body := marchallObj(t, ValidateCouponRequest{Code: "PROMO10", ItemType: coupon.ItemTypeCourse, ItemID: "any", Subtotal: 200})
		req, rec := newAuthRequest(http.MethodPost, "/v1/coupons/validate", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var quote coupon.Quote
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
		assert.Equal(t, 20.0, quote.Discount)
		assert.Equal(t, 180.0, quote.FinalTotal)
	})

	t.Run("redemption reaches a cached quote", func(t *testing.T) {
		eb := ta.createEbook(t, "Go Patterns", ebook.FormatDigital, 200, true)
		limit := 1
		ta.createCoupon(t, "lastone", coupon.TypePercentage, 10, &limit)

		// warm the cache with a quote
		body := marchallObj(t, ValidateCouponRequest{Code: "lastone", ItemType: coupon.ItemTypeEbook, ItemID: eb.ID, Subtotal: 200})
		req, rec := newAuthRequest(http.MethodPost, "/v1/coupons/validate", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		// redeem the only usage
		body = marchallObj(t, order.NewOrder{ItemType: coupon.ItemTypeEbook, ItemID: eb.ID, CouponCode: "lastone"})
		req, rec = newAuthRequest(http.MethodPost, "/v1/orders", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		var ord order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ord))

		body = marchallObj(t, order.CompleteOrder{Method: order.MethodCard, Reference: "ch_456"})
		req, rec = newAuthRequest(http.MethodPost, "/v1/orders/"+ord.ID+"/complete", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		// the exhausted coupon must be rejected right away
		body = marchallObj(t, ValidateCouponRequest{Code: "lastone", ItemType: coupon.ItemTypeEbook, ItemID: eb.ID, Subtotal: 200})
		req, rec = newAuthRequest(http.MethodPost, "/v1/coupons/validate", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "coupon usage limit reached"}),
		}, rec)
	})

	t.Run("unknown code", func(t *testing.T) {
		body := marchallObj(t, ValidateCouponRequest{Code: "nope", ItemType: coupon.ItemTypeCourse, ItemID: "any", Subtotal: 200})
		req, rec := newAuthRequest(http.MethodPost, "/v1/coupons/validate", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "coupon not found"}),
		}, rec)
	})
}

func Test_couponApi_crud(t *testing.T) {
	ta := setup(t)

	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	admin := ta.createUser(t, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	now := time.Now().UTC()
	newCpn := coupon.NewCoupon{
		Code:       "welcome20",
		Type:       coupon.TypePercentage,
		Value:      20,
		ValidFrom:  now,
		ValidUntil: now.Add(30 * 24 * time.Hour),
		Scope:      coupon.ScopeAll,
	}

	t.Run("admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/coupons", getToken(t, student), marchallObj(t, newCpn))
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	var created coupon.Coupon
	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/coupons", adminToken, marchallObj(t, newCpn))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, "welcome20", created.Code)
		assert.True(t, created.IsActive)
		assert.Zero(t, created.UsageCount)
	})

	t.Run("duplicate code rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/coupons", adminToken, marchallObj(t, newCpn))
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": "a coupon with this code already exists"}),
		}, rec)
	})

	t.Run("value required outside free shipping", func(t *testing.T) {
		bad := newCpn
		bad.Code = "broken"
		bad.Value = 0
		req, rec := newAuthRequest(http.MethodPost, "/v1/coupons", adminToken, marchallObj(t, bad))
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"value": "this field is required"}),
		}, rec)
	})

	t.Run("deactivate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/coupons/"+created.ID, adminToken, []byte(`{"is_active": false}`))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var updated coupon.Coupon
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.False(t, updated.IsActive)
	})

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/coupons", adminToken)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var coupons []coupon.Coupon
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coupons))
		assert.Len(t, coupons, 1)
	})
}
