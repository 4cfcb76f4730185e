package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tshilobo/soko/core/course"
	"github.com/tshilobo/soko/core/user"
)

func Test_courseApi_publicCatalog(t *testing.T) {
	ta := setup(t)

	instructor := ta.createUser(t, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleInstructor}, true)
	published := ta.createCourse(t, "Intro to Go", instructor.ID, 100, false, true)
	ta.createCourse(t, "Secret Draft", instructor.ID, 100, false, false)

	t.Run("list hides drafts", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses")
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, published)}, rec)
	})

	t.Run("detail by id", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses/"+published.ID)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, published)}, rec)
	})

	t.Run("detail by slug", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses/intro-to-go")
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, published)}, rec)
	})

	t.Run("draft detail is hidden", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses/secret-draft")
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})
}

func Test_courseApi_crud(t *testing.T) {
	ta := setup(t)

	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	instructor := ta.createUser(t, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleInstructor}, true)
	rival := ta.createUser(t, "Rival", "rival01", "rival@test.cd", "", []string{user.RoleInstructor}, true)

	t.Run("staff required", func(t *testing.T) {
		body := marchallObj(t, course.NewCourse{Title: "Nope", Price: 10})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, student), body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	var created course.Course
	t.Run("instructor creates own course", func(t *testing.T) {
		body := marchallObj(t, course.NewCourse{Title: "Advanced Go", Description: "deep dive", Price: 150})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, instructor), body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, instructor.ID, created.InstructorID)
		assert.Equal(t, "advanced-go", created.Slug)
		assert.False(t, created.IsPublished)
	})

	t.Run("free course price is rejected", func(t *testing.T) {
		body := marchallObj(t, course.NewCourse{Title: "Free Stuff"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, instructor), body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"price": "a paid course must have a positive price"}),
		}, rec)
	})

	t.Run("rival cannot update", func(t *testing.T) {
		body := []byte(`{"title": "Hijacked"}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/courses/"+created.ID, getToken(t, rival), body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	t.Run("owner publishes", func(t *testing.T) {
		body := []byte(`{"is_published": true}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/courses/"+created.ID, getToken(t, instructor), body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var updated course.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.True(t, updated.IsPublished)
	})

	t.Run("owner adds chapter and content", func(t *testing.T) {
		body := marchallObj(t, course.NewChapter{Title: "Getting Started"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+created.ID+"/chapters", getToken(t, instructor), body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var ch course.Chapter
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ch))
		assert.Equal(t, 1, ch.Position)

		body = marchallObj(t, course.NewContent{Title: "Welcome", Kind: course.ContentVideo})
		req, rec = newAuthRequest(http.MethodPost, "/v1/courses/"+created.ID+"/chapters/"+ch.ID+"/contents", getToken(t, instructor), body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var cnt course.Content
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cnt))
		assert.Equal(t, ch.ID, cnt.ChapterID)
	})
}

func Test_courseApi_accessAndProgress(t *testing.T) {
	ta := setup(t)

	instructor := ta.createUser(t, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleInstructor}, true)
	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	studentToken := getToken(t, student)

	free := ta.createCourse(t, "Free Intro", instructor.ID, 0, true, true)
	paid := ta.createCourse(t, "Paid Masterclass", instructor.ID, 200, false, true)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses/"+free.ID+"/access")
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("free course grants access", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+free.ID+"/access", studentToken)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var decision course.AccessDecision
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
		assert.True(t, decision.HasAccess)
		assert.Equal(t, course.AccessFree, decision.AccessType)
	})

	t.Run("paid course denied when not enrolled", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+paid.ID+"/access", studentToken)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var decision course.AccessDecision
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
		assert.False(t, decision.HasAccess)
		assert.NotEmpty(t, decision.Reason)
	})

	t.Run("instructor always has access", func(t *testing.T) {
		instructorToken := getToken(t, instructor)
		for _, crs := range []course.Course{free, paid} {
			req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/access", instructorToken)
			ta.app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)

			var decision course.AccessDecision
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
			assert.True(t, decision.HasAccess)
			assert.Equal(t, course.AccessInstructor, decision.AccessType)
		}

		// access never enrolls the owner, not even on a free course
		enrs, err := ta.courseSvc.QueryEnrollments(context.Background(), instructor.ID)
		require.NoError(t, err)
		assert.Empty(t, enrs)
	})

	t.Run("instructor cannot enroll in own course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+free.ID+"/enroll", getToken(t, instructor))
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"error": "instructors cannot enroll in their own courses"}),
		}, rec)
	})

	t.Run("progress through a free course", func(t *testing.T) {
		ch, err := ta.courseSvc.AddChapter(context.Background(), free.ID, course.NewChapter{Title: "Only Chapter"})
		require.NoError(t, err)
		cnt1, err := ta.courseSvc.AddContent(context.Background(), free.ID, ch.ID, course.NewContent{Title: "One", Kind: course.ContentVideo})
		require.NoError(t, err)
		cnt2, err := ta.courseSvc.AddContent(context.Background(), free.ID, ch.ID, course.NewContent{Title: "Two", Kind: course.ContentVideo})
		require.NoError(t, err)

		body := marchallObj(t, map[string]string{"content_id": cnt1.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+free.ID+"/progress", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var enr course.Enrollment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
		assert.Equal(t, 50, enr.Progress)
		assert.Equal(t, course.StatusActive, enr.Status)

		body = marchallObj(t, map[string]string{"content_id": cnt2.ID})
		req, rec = newAuthRequest(http.MethodPost, "/v1/courses/"+free.ID+"/progress", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
		assert.Equal(t, 100, enr.Progress)
		assert.Equal(t, course.StatusCompleted, enr.Status)

		// revisiting earlier content must not regress progress
		body = marchallObj(t, map[string]string{"content_id": cnt1.ID})
		req, rec = newAuthRequest(http.MethodPost, "/v1/courses/"+free.ID+"/progress", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
		assert.Equal(t, 100, enr.Progress)
		assert.Equal(t, course.StatusCompleted, enr.Status)
	})

	t.Run("enrollments listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/enrollments", studentToken)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var enrs []course.Enrollment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enrs))
		require.Len(t, enrs, 1)
		assert.Equal(t, free.ID, enrs[0].CourseID)
	})

	t.Run("cancel enrollment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/courses/"+free.ID+"/enroll", studentToken)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var enr course.Enrollment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
		assert.Equal(t, course.StatusCanceled, enr.Status)
	})
}
