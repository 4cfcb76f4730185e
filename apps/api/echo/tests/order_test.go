package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tshilobo/soko/core/coupon"
	"github.com/tshilobo/soko/core/course"
	"github.com/tshilobo/soko/core/ebook"
	"github.com/tshilobo/soko/core/order"
	"github.com/tshilobo/soko/core/user"
)

func Test_orderApi_checkout(t *testing.T) {
	ta := setup(t)

	instructor := ta.createUser(t, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleInstructor}, true)
	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	studentToken := getToken(t, student)

	crs := ta.createCourse(t, "Paid Masterclass", instructor.ID, 200, false, true)
	freeCrs := ta.createCourse(t, "Free Intro", instructor.ID, 0, true, true)
	digital := ta.createEbook(t, "Go Patterns", ebook.FormatDigital, 100, true)
	printEb := ta.createEbook(t, "Go Patterns Print", ebook.FormatPrint, 100, true)
	draft := ta.createEbook(t, "Unfinished", ebook.FormatDigital, 50, false)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/orders")
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("free course cannot be bought", func(t *testing.T) {
		body := marchallObj(t, order.NewOrder{ItemType: coupon.ItemTypeCourse, ItemID: freeCrs.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "item is not available for purchase"}),
		}, rec)
	})

	t.Run("unpublished ebook cannot be bought", func(t *testing.T) {
		body := marchallObj(t, order.NewOrder{ItemType: coupon.ItemTypeEbook, ItemID: draft.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "item is not available for purchase"}),
		}, rec)
	})

	t.Run("print ebook requires shipping", func(t *testing.T) {
		body := marchallObj(t, order.NewOrder{ItemType: coupon.ItemTypeEbook, ItemID: printEb.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"shipping": "shipping address is required for print ebooks"}),
		}, rec)
	})

	t.Run("print ebook adds shipping fee", func(t *testing.T) {
		body := marchallObj(t, order.NewOrder{
			ItemType: coupon.ItemTypeEbook,
			ItemID:   printEb.ID,
			Shipping: &order.NewShipping{Name: "Hero", Address: "12 Main St, Kinshasa", Phone: "+243123456789"},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var ord order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ord))
		assert.Equal(t, order.StatusPending, ord.Status)
		assert.Equal(t, coupon.ShippingFlatFee, ord.ShippingFee)
		assert.Equal(t, 150.0, ord.Total)
		require.NotNil(t, ord.Shipping)
		assert.Equal(t, order.ShippingPending, ord.Shipping.Status)
	})

	t.Run("course checkout with percentage coupon", func(t *testing.T) {
		ta.createCoupon(t, "promo10", coupon.TypePercentage, 10, nil)

		body := marchallObj(t, order.NewOrder{ItemType: coupon.ItemTypeCourse, ItemID: crs.ID, CouponCode: "PROMO10"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var ord order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ord))
		assert.Equal(t, 200.0, ord.Subtotal)
		assert.Equal(t, 20.0, ord.Discount)
		assert.Equal(t, 180.0, ord.Total)
		assert.Equal(t, "promo10", ord.CouponCode)
		assert.Equal(t, crs.Title, ord.ItemTitle)
	})

	t.Run("unknown coupon rejected", func(t *testing.T) {
		body := marchallObj(t, order.NewOrder{ItemType: coupon.ItemTypeEbook, ItemID: digital.ID, CouponCode: "nope"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "coupon not found"}),
		}, rec)
	})
}

func Test_orderApi_completeAndCancel(t *testing.T) {
	ta := setup(t)

	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := ta.createUser(t, "Other", "other01", "other@test.cd", "", []string{user.RoleStudent}, true)
	admin := ta.createUser(t, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	instructor := ta.createUser(t, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleInstructor}, true)
	studentToken := getToken(t, student)

	crs := ta.createCourse(t, "Paid Masterclass", instructor.ID, 200, false, true)

	checkout := func(t *testing.T, token, itemType, itemID, code string) order.Order {
		body := marchallObj(t, order.NewOrder{ItemType: itemType, ItemID: itemID, CouponCode: code})
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders", token, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var ord order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ord))
		return ord
	}
	complete := func(t *testing.T, token, orderID string) *http.Response {
		body := marchallObj(t, order.CompleteOrder{Method: order.MethodCard, Reference: "ch_123"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+orderID+"/complete", token, body)
		ta.app.ServeHTTP(rec, req)
		return rec.Result()
	}

	t.Run("completing a course order enrolls the buyer", func(t *testing.T) {
		ord := checkout(t, studentToken, coupon.ItemTypeCourse, crs.ID, "")

		res := complete(t, studentToken, ord.ID)
		require.Equal(t, http.StatusOK, res.StatusCode)

		var completed order.Order
		require.NoError(t, json.NewDecoder(res.Body).Decode(&completed))
		assert.Equal(t, order.StatusCompleted, completed.Status)

		enrs, err := ta.courseSvc.QueryEnrollments(context.Background(), student.ID)
		require.NoError(t, err)
		require.Len(t, enrs, 1)
		assert.Equal(t, crs.ID, enrs[0].CourseID)
		assert.Equal(t, course.StatusActive, enrs[0].Status)

		// payment is retrievable by the owner
		req, rec := newAuthRequest(http.MethodGet, "/v1/orders/"+ord.ID+"/payment", studentToken)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var pay order.Payment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pay))
		assert.Equal(t, ord.Total, pay.Amount)
		assert.Equal(t, "ch_123", pay.Reference)

		// completing twice fails
		res = complete(t, studentToken, ord.ID)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("stranger cannot see or complete the order", func(t *testing.T) {
		eb := ta.createEbook(t, "Go Patterns", "DIGITAL", 100, true)
		ord := checkout(t, studentToken, coupon.ItemTypeEbook, eb.ID, "")

		req, rec := newAuthRequest(http.MethodGet, "/v1/orders/"+ord.ID, getToken(t, other))
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)

		res := complete(t, getToken(t, other), ord.ID)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)

		// admin can
		req, rec = newAuthRequest(http.MethodGet, "/v1/orders/"+ord.ID, getToken(t, admin))
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("cancel a pending order", func(t *testing.T) {
		eb := ta.createEbook(t, "Go Patterns II", "DIGITAL", 100, true)
		ord := checkout(t, studentToken, coupon.ItemTypeEbook, eb.ID, "")

		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+ord.ID+"/cancel", studentToken)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var canceled order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &canceled))
		assert.Equal(t, order.StatusCanceled, canceled.Status)

		// canceled orders cannot be completed
		res := complete(t, studentToken, ord.ID)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("coupon exhausts at its usage limit", func(t *testing.T) {
		limit := 1
		cpn := ta.createCoupon(t, "lastone", coupon.TypeFixedAmount, 10, &limit)

		eb := ta.createEbook(t, "Scarce Book", "DIGITAL", 100, true)
		ord1 := checkout(t, studentToken, coupon.ItemTypeEbook, eb.ID, "lastone")
		ord2 := checkout(t, getToken(t, other), coupon.ItemTypeEbook, eb.ID, "lastone")

		res := complete(t, studentToken, ord1.ID)
		require.Equal(t, http.StatusOK, res.StatusCode)

		// the second order grabbed a quote before the limit was hit; completion
		// must fail now that the last redemption is gone
		res = complete(t, getToken(t, other), ord2.ID)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)

		got, err := ta.couponSvc.GetByID(context.Background(), cpn.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.UsageCount)

		// losing order is still pending; it can be canceled
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+ord2.ID+"/cancel", getToken(t, other))
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		usages, err := ta.couponSvc.Usages(context.Background(), cpn.ID)
		require.NoError(t, err)
		require.Len(t, usages, 1)
		assert.Equal(t, ord1.ID, usages[0].OrderID)
	})

	t.Run("admin stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/orders/stats", getToken(t, admin))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats order.Stats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.NotZero(t, stats.CompletedOrders)
		assert.NotZero(t, stats.Revenue)
	})

	t.Run("stats is admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/orders/stats", studentToken)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})
}

func Test_orderApi_shipping(t *testing.T) {
	ta := setup(t)

	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	admin := ta.createUser(t, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	studentToken := getToken(t, student)

	printEb := ta.createEbook(t, "Go Patterns Print", ebook.FormatPrint, 100, true)

	body := marchallObj(t, order.NewOrder{
		ItemType: coupon.ItemTypeEbook,
		ItemID:   printEb.ID,
		Shipping: &order.NewShipping{Name: "Hero", Address: "12 Main St, Kinshasa", Phone: "+243123456789"},
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/orders", studentToken, body)
	ta.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var ord order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ord))

	t.Run("shipping update is admin only", func(t *testing.T) {
		body := marchallObj(t, order.UpdateShipping{Status: order.ShippingShipped})
		req, rec := newAuthRequest(http.MethodPut, "/v1/orders/"+ord.ID+"/shipping", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	t.Run("admin marks shipped", func(t *testing.T) {
		body := marchallObj(t, order.UpdateShipping{Status: order.ShippingShipped})
		req, rec := newAuthRequest(http.MethodPut, "/v1/orders/"+ord.ID+"/shipping", getToken(t, admin), body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var updated order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		require.NotNil(t, updated.Shipping)
		assert.Equal(t, order.ShippingShipped, updated.Shipping.Status)
	})

	t.Run("bad status rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/orders/"+ord.ID+"/shipping", getToken(t, admin), []byte(`{"status": "LOST"}`))
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
