package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tshilobo/soko/core/exam"
	"github.com/tshilobo/soko/core/user"
)

func Test_examApi_take(t *testing.T) {
	ta := setup(t)

	instructor := ta.createUser(t, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleInstructor}, true)
	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	outsider := ta.createUser(t, "Out", "outsider", "out@test.cd", "", []string{user.RoleStudent}, true)
	studentToken := getToken(t, student)

	crs := ta.createCourse(t, "Paid Masterclass", instructor.ID, 200, false, true)
	questions := []exam.Question{
		{Prompt: "2 + 2 ?", Choices: []string{"3", "4", "5"}, CorrectIndex: 1},
		{Prompt: "3 x 3 ?", Choices: []string{"9", "6"}, CorrectIndex: 0},
		{Prompt: "10 / 2 ?", Choices: []string{"2", "4", "5"}, CorrectIndex: 2},
	}
	ex := ta.createExam(t, crs.ID, "Final Exam", 67, true, questions...)
	draftEx := ta.createExam(t, crs.ID, "Draft Exam", 50, false)

	// only enrolled students may take the exam
	_, err := ta.courseSvc.Enroll(context.Background(), student.ID, crs.ID)
	require.NoError(t, err)

	t.Run("questions hide the answer key", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/exams/"+ex.ID, studentToken)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "correct_index")
	})

	t.Run("draft exam hidden from students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/exams/"+draftEx.ID, studentToken)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("unenrolled student cannot take", func(t *testing.T) {
		body := marchallObj(t, exam.Submission{Answers: []int64{1, 0, 2}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/take", getToken(t, outsider), body)
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("answer count must match", func(t *testing.T) {
		body := marchallObj(t, exam.Submission{Answers: []int64{1}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/take", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("passing attempt", func(t *testing.T) {
		// 2 of 3 correct, the last skipped
		body := marchallObj(t, exam.Submission{Answers: []int64{1, 0, -1}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/take", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var att exam.Attempt
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &att))
		assert.Equal(t, 67, att.Score)
		assert.True(t, att.Passed)
	})

	t.Run("failing attempt", func(t *testing.T) {
		body := marchallObj(t, exam.Submission{Answers: []int64{0, 1, 0}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/take", studentToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var att exam.Attempt
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &att))
		assert.Equal(t, 0, att.Score)
		assert.False(t, att.Passed)
	})

	t.Run("attempt history", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/exams/"+ex.ID+"/attempts", studentToken)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var atts []exam.Attempt
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &atts))
		assert.Len(t, atts, 2)
	})

	t.Run("instructor inspects a student's attempts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/exams/"+ex.ID+"/attempts?user_id="+student.ID, getToken(t, instructor))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var atts []exam.Attempt
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &atts))
		assert.Len(t, atts, 2)
	})
}

func Test_examApi_crud(t *testing.T) {
	ta := setup(t)

	instructor := ta.createUser(t, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleInstructor}, true)
	student := ta.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	instructorToken := getToken(t, instructor)

	crs := ta.createCourse(t, "Paid Masterclass", instructor.ID, 200, false, true)

	t.Run("staff required", func(t *testing.T) {
		body := marchallObj(t, exam.NewExam{CourseID: crs.ID, Title: "Nope", PassMark: 50})
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams", getToken(t, student), body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	var created exam.Exam
	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, exam.NewExam{CourseID: crs.ID, Title: "Midterm", PassMark: 60})
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams", instructorToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, 60, created.PassMark)
		assert.False(t, created.IsPublished)
	})

	t.Run("bad pass mark", func(t *testing.T) {
		body := marchallObj(t, exam.NewExam{CourseID: crs.ID, Title: "Overshoot", PassMark: 110})
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams", instructorToken, body)
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("add question validates the answer key", func(t *testing.T) {
		body := marchallObj(t, exam.NewQuestion{Prompt: "2 + 2 ?", Choices: []string{"3", "4"}, CorrectIndex: 5})
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams/"+created.ID+"/questions", instructorToken, body)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"correct_index": "must point at one of the choices"}),
		}, rec)
	})

	t.Run("add question", func(t *testing.T) {
		body := marchallObj(t, exam.NewQuestion{Prompt: "2 + 2 ?", Choices: []string{"3", "4"}, CorrectIndex: 1})
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams/"+created.ID+"/questions", instructorToken, body)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var q exam.Question
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
		assert.Equal(t, created.ID, q.ExamID)
		assert.Equal(t, 1, q.Position)
	})

	t.Run("publish", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/exams/"+created.ID, instructorToken, []byte(`{"is_published": true}`))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var updated exam.Exam
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.True(t, updated.IsPublished)
	})

	t.Run("course exam listing hides drafts from students", func(t *testing.T) {
		ta.createExam(t, crs.ID, "Secret Draft", 50, false)

		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/exams", getToken(t, student))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var exams []exam.Exam
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exams))
		require.Len(t, exams, 1)
		assert.Equal(t, created.ID, exams[0].ID)
	})
}
