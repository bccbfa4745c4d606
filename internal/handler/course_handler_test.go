package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type fakeCourseSrv struct {
	saved      models.Course
	course     *models.Course
	active     []models.Course
	activeHit  bool
	setID      string
	setActive  *bool
	setErr     error
	deleteErr  error
	inactive   []models.Course
	listCalled bool
}

func (f *fakeCourseSrv) Save(_ context.Context, course models.Course) (*models.Course, error) {
	f.saved = course
	return &course, nil
}

func (f *fakeCourseSrv) FindByID(context.Context, string) (*models.Course, error) {
	return f.course, nil
}

func (f *fakeCourseSrv) ListAll(context.Context) ([]models.Course, error) {
	f.listCalled = true
	return nil, nil
}

func (f *fakeCourseSrv) ListActive(context.Context) ([]models.Course, bool, error) {
	return f.active, f.activeHit, nil
}

func (f *fakeCourseSrv) ListInactive(context.Context) ([]models.Course, error) {
	return f.inactive, nil
}

func (f *fakeCourseSrv) SetActive(_ context.Context, id string, active bool) (*models.Course, error) {
	f.setID = id
	f.setActive = &active
	if f.setErr != nil {
		return nil, f.setErr
	}
	return &models.Course{ID: id, Active: active}, nil
}

func (f *fakeCourseSrv) Delete(context.Context, string) error {
	return f.deleteErr
}

func TestCourseHandlerCreateDefaultsActive(t *testing.T) {
	srv := &fakeCourseSrv{}
	handler := NewCourseHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/courses", `{"name":"Go 101","price":"199.90","duration_hours":40}`)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, srv.saved.Active)
	assert.True(t, srv.saved.Price.Equal(decimal.RequireFromString("199.90")))
	require.NotNil(t, srv.saved.DurationHours)
	assert.Equal(t, 40, *srv.saved.DurationHours)
}

func TestCourseHandlerUpdateCanClose(t *testing.T) {
	srv := &fakeCourseSrv{}
	handler := NewCourseHandler(srv)

	c, rec := newTestContext(http.MethodPut, "/courses/course-1", `{"name":"Go 101","price":10,"active":false}`)
	c.AddParam("id", "course-1")
	handler.Update(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "course-1", srv.saved.ID)
	assert.False(t, srv.saved.Active)
}

func TestCourseHandlerListActiveReportsCacheHit(t *testing.T) {
	handler := NewCourseHandler(&fakeCourseSrv{active: []models.Course{{ID: "course-1", Active: true}}, activeHit: true})

	c, rec := newTestContext(http.MethodGet, "/courses/active", "")
	middleware.WithResponseMeta()(c)
	handler.ListActive(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, string(envelope.Data), `"id":"course-1"`)
}

func TestCourseHandlerSetStatus(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
		active *bool
	}{
		{name: "ativo false", target: "/courses/c1/status?ativo=false", status: http.StatusOK, active: boolPtr(false)},
		{name: "active alias", target: "/courses/c1/status?active=true", status: http.StatusOK, active: boolPtr(true)},
		{name: "missing flag", target: "/courses/c1/status", status: http.StatusBadRequest},
		{name: "not a boolean", target: "/courses/c1/status?ativo=maybe", status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := &fakeCourseSrv{}
			handler := NewCourseHandler(srv)

			c, rec := newTestContext(http.MethodPatch, tc.target, "")
			c.AddParam("id", "c1")
			handler.SetStatus(c)

			assert.Equal(t, tc.status, rec.Code)
			if tc.active == nil {
				assert.Nil(t, srv.setActive)
				return
			}
			require.NotNil(t, srv.setActive)
			assert.Equal(t, *tc.active, *srv.setActive)
			assert.Equal(t, "c1", srv.setID)
		})
	}
}

func TestCourseHandlerSetStatusNotFound(t *testing.T) {
	handler := NewCourseHandler(&fakeCourseSrv{setErr: appErrors.Clone(appErrors.ErrNotFound, "course not found")})

	c, rec := newTestContext(http.MethodPatch, "/courses/nope/status?ativo=true", "")
	c.AddParam("id", "nope")
	handler.SetStatus(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCourseHandlerGetNotFound(t *testing.T) {
	handler := NewCourseHandler(&fakeCourseSrv{})

	c, rec := newTestContext(http.MethodGet, "/courses/nope", "")
	c.AddParam("id", "nope")
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCourseHandlerDeleteConflict(t *testing.T) {
	handler := NewCourseHandler(&fakeCourseSrv{deleteErr: appErrors.Clone(appErrors.ErrConflict, "course has dependent enrollments")})

	c, rec := newTestContext(http.MethodDelete, "/courses/c1", "")
	c.AddParam("id", "c1")
	handler.Delete(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeEnvelope(t, rec).Error.Code)
}

func boolPtr(v bool) *bool { return &v }
