package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	. "github.com/tshilobo/soko/apps/api/echo"
	"github.com/tshilobo/soko/core/coupon"
	"github.com/tshilobo/soko/core/course"
	"github.com/tshilobo/soko/core/ebook"
	"github.com/tshilobo/soko/core/exam"
	"github.com/tshilobo/soko/core/order"
	"github.com/tshilobo/soko/core/user"
	cachesvc "github.com/tshilobo/soko/services/cache"
	emailsvc "github.com/tshilobo/soko/services/email"
	dummydb "github.com/tshilobo/soko/storage/database/dummy"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errPermDenied   = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

// testApp wires a full server over the in-memory database so each test can
// seed its own data through the repositories.
type testApp struct {
	app Server

	usrRepo    user.Repository
	courseRepo course.Repository
	ebookRepo  ebook.Repository
	couponRepo coupon.Repository
	orderRepo  order.Repository
	examRepo   exam.Repository

	usrSvc    user.Service
	courseSvc course.Service
	ebookSvc  ebook.Service
	couponSvc coupon.Service
	orderSvc  order.Service
	examSvc   exam.Service
}

func setup(t *testing.T) *testApp {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	ta := &testApp{
		usrRepo:    dummydb.NewUserRepository(db),
		courseRepo: dummydb.NewCourseRepository(db),
		ebookRepo:  dummydb.NewEbookRepository(db),
		couponRepo: dummydb.NewCouponRepository(db),
		orderRepo:  dummydb.NewOrderRepository(db),
		examRepo:   dummydb.NewExamRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock()
	ta.usrSvc = user.NewService(ta.usrRepo, mailSvc)
	ta.courseSvc = course.NewService(ta.courseRepo)
	ta.ebookSvc = ebook.NewService(ta.ebookRepo)
	ta.couponSvc = coupon.NewService(ta.couponRepo, cachesvc.NewInMemCache())
	ta.orderSvc = order.NewService(ta.orderRepo, ta.courseSvc, ta.ebookSvc, ta.couponSvc, mailSvc)
	ta.examSvc = exam.NewService(ta.examRepo, ta.courseSvc)

	ta.app = NewServer(&Options{
		DisableReqLogs: true,
		UserSvc:        ta.usrSvc,
		CourseSvc:      ta.courseSvc,
		EbookSvc:       ta.ebookSvc,
		CouponSvc:      ta.couponSvc,
		OrderSvc:       ta.orderSvc,
		ExamSvc:        ta.examSvc,
	})
	return ta
}

// Fixtures

func (ta *testApp) createUser(t *testing.T, name, uname, email, pwd string, roles []string, isActive bool) user.User {
	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("SetPassword(): %v", err)
		}
	}
	usr, err := ta.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func (ta *testApp) createCourse(t *testing.T, title, instructorID string, price float64, isFree, isPublished bool) course.Course {
	now := time.Now().UTC()
	crs, err := ta.courseRepo.CreateCourse(context.Background(), course.Course{
		ID:           uuid.New().String(),
		Title:        title,
		Slug:         course.Slugify(title),
		InstructorID: instructorID,
		Price:        price,
		IsFree:       isFree,
		IsPublished:  isPublished,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return crs
}

func (ta *testApp) createEbook(t *testing.T, title, format string, price float64, isPublished bool) ebook.Ebook {
	now := time.Now().UTC()
	eb, err := ta.ebookRepo.CreateEbook(context.Background(), ebook.Ebook{
		ID:          uuid.New().String(),
		Title:       title,
		Author:      "Author",
		Price:       price,
		Format:      format,
		Stock:       -1,
		IsPublished: isPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateEbook(): %v", err)
	}
	return eb
}

func (ta *testApp) createCoupon(t *testing.T, code, typ string, value float64, usageLimit *int) coupon.Coupon {
	now := time.Now().UTC()
	cpn, err := ta.couponRepo.CreateCoupon(context.Background(), coupon.Coupon{
		ID:         uuid.New().String(),
		Code:       code,
		Type:       typ,
		Value:      value,
		UsageLimit: null.IntFromPtr(usageLimit),
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(time.Hour),
		Scope:      coupon.ScopeAll,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateCoupon(): %v", err)
	}
	return cpn
}

func (ta *testApp) createExam(t *testing.T, courseID, title string, passMark int, isPublished bool, questions ...exam.Question) exam.Exam {
	now := time.Now().UTC()
	ex, err := ta.examRepo.CreateExam(context.Background(), exam.Exam{
		ID:          uuid.New().String(),
		CourseID:    courseID,
		Title:       title,
		PassMark:    passMark,
		IsPublished: isPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateExam(): %v", err)
	}
	for i, q := range questions {
		q.ID = uuid.New().String()
		q.ExamID = ex.ID
		q.Position = i + 1
		if _, err = ta.examRepo.CreateQuestion(context.Background(), q); err != nil {
			t.Fatalf("CreateQuestion(): %v", err)
		}
	}
	ex, err = ta.examRepo.GetExamByID(context.Background(), ex.ID)
	if err != nil {
		t.Fatalf("GetExamByID(): %v", err)
	}
	return ex
}

// HTTP helpers

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
