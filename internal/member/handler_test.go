package member

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gymmanager/internal/api"
	"gymmanager/internal/auth"
	"gymmanager/internal/lifecycle"
	"gymmanager/internal/plan"
	"gymmanager/internal/storage"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) view(args mock.Arguments) (*View, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*View), args.Error(1)
}

func (m *MockService) Enroll(ctx context.Context, gymID int, req EnrollRequest) (*View, error) {
	return m.view(m.Called(ctx, gymID, req))
}

func (m *MockService) Get(ctx context.Context, gymID, id int) (*View, error) {
	return m.view(m.Called(ctx, gymID, id))
}

func (m *MockService) List(ctx context.Context, gymID int, f Filter, page, limit int) ([]View, int, error) {
	args := m.Called(ctx, gymID, f, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]View), args.Int(1), args.Error(2)
}

func (m *MockService) Renew(ctx context.Context, gymID, id int, req RenewRequest) (*View, error) {
	return m.view(m.Called(ctx, gymID, id, req))
}

func (m *MockService) SetActive(ctx context.Context, gymID, id int, active bool) (*View, error) {
	return m.view(m.Called(ctx, gymID, id, active))
}

func (m *MockService) SetPaid(ctx context.Context, gymID, id int, paid bool) (*View, error) {
	return m.view(m.Called(ctx, gymID, id, paid))
}

func (m *MockService) UpdateDetails(ctx context.Context, gymID, id int, req UpdateRequest) (*View, error) {
	return m.view(m.Called(ctx, gymID, id, req))
}

func (m *MockService) Delete(ctx context.Context, gymID, id int) error {
	return m.Called(ctx, gymID, id).Error(0)
}

func (m *MockService) UploadPhoto(ctx context.Context, gymID, id int, up *storage.Upload) (*View, error) {
	return m.view(m.Called(ctx, gymID, id, up))
}

func setupRouter(svc Service, gymID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		auth.SetSession(c, auth.Session{GymID: gymID, Username: "owner"})
		c.Next()
	})

	h := NewHandler(svc)
	r.POST("/members", h.Enroll)
	r.GET("/members", h.List)
	r.GET("/members/:id", h.Get)
	r.PUT("/members/:id", h.Update)
	r.DELETE("/members/:id", h.Delete)
	r.PATCH("/members/:id/status", h.SetStatus)
	r.PATCH("/members/:id/payment", h.SetPayment)
	r.POST("/members/:id/renew", h.Renew)
	r.POST("/members/:id/photo", h.UploadPhoto)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Enroll(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, 1)

	svc.On("Enroll", mock.Anything, 1, mock.MatchedBy(func(req EnrollRequest) bool {
		return req.JoiningDate.String() == "2024-06-01" && *req.MembershipPlanID == 2 && req.IsPaid
	})).Return(&View{
		Member: Member{ID: 1, JoiningDate: lifecycle.NewDate(2024, 6, 1), NextBillDate: lifecycle.NewDate(2024, 7, 1), IsActive: true},
		Status: lifecycle.StatusActive,
	}, nil)

	w := doJSON(router, http.MethodPost, "/members",
		`{"name":"Jane","phone":"555","address":"Main St","joiningDate":"2024-06-01","membershipPlanId":2,"isPaid":true}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"nextBillDate":"2024-07-01"`)
	assert.Contains(t, w.Body.String(), `"status":"active"`)
	svc.AssertExpectations(t)
}

func TestHandler_Enroll_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing joining date", `{"name":"Jane","phone":"555","address":"Main St"}`, "joiningDate"},
		{"missing address", `{"name":"Jane","phone":"555","joiningDate":"2024-06-01"}`, "address"},
		{"bad date", `{"name":"Jane","phone":"555","address":"x","joiningDate":"06/01/2024"}`, "body"},
		{"bad plan id", `{"name":"Jane","phone":"555","address":"x","joiningDate":"2024-06-01","membershipPlanId":0}`, "membershipPlanId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			w := doJSON(setupRouter(svc, 1), http.MethodPost, "/members", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp api.ValidationErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotEmpty(t, resp.Details)
			assert.Equal(t, tt.field, resp.Details[0].Field)
			svc.AssertNotCalled(t, "Enroll", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_Enroll_ServiceValidation(t *testing.T) {
	svc := new(MockService)
	svc.On("Enroll", mock.Anything, 1, mock.Anything).Return(nil, invalid("name", "name is required"))

	w := doJSON(setupRouter(svc, 1), http.MethodPost, "/members",
		`{"name":" ","phone":"555","address":"x","joiningDate":"2024-06-01"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"name"`)
}

func TestHandler_List_Pagination(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, 1)

	views := make([]View, 0, 10)
	for id := 11; id <= 20; id++ {
		views = append(views, View{Member: Member{ID: id}})
	}
	svc.On("List", mock.Anything, 1, Filter{Name: "ja"}, 2, 10).Return(views, 25, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members?page=2&limit=10&name=ja", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var page api.Page[View]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Data, 10)
	assert.Equal(t, 11, page.Data[0].ID)
	assert.Equal(t, 20, page.Data[9].ID)
}

func TestHandler_List_StatusFilter(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, 1)

	svc.On("List", mock.Anything, 1, Filter{Status: lifecycle.StatusExpiringSoon}, 1, 10).Return([]View{}, 0, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members?status=expiring_soon", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members?status=overdue", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// offset would overflow
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members?page=922337203685477581&limit=10", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNumberOfCalls(t, "List", 1)
}

func TestHandler_ForeignMemberIsNotFound(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, 2)

	svc.On("Get", mock.Anything, 2, 10).Return(nil, ErrMemberNotFound)
	svc.On("SetActive", mock.Anything, 2, 10, false).Return(nil, ErrMemberNotFound)
	svc.On("Renew", mock.Anything, 2, 10, RenewRequest{MembershipPlanID: 1}).Return(nil, ErrMemberNotFound)
	svc.On("Delete", mock.Anything, 2, 10).Return(ErrMemberNotFound)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members/10", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodPatch, "/members/10/status", `{"isActive":false}`).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodPost, "/members/10/renew", `{"membershipPlanId":1}`).Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/members/10", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertExpectations(t)
}

func TestHandler_SetPayment(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, 1)

	svc.On("SetPaid", mock.Anything, 1, 10, false).Return(&View{Member: Member{ID: 10}}, nil)

	assert.Equal(t, http.StatusOK, doJSON(router, http.MethodPatch, "/members/10/payment", `{"isPaid":false}`).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(router, http.MethodPatch, "/members/10/payment", `{}`).Code)
	svc.AssertExpectations(t)
}

func TestHandler_Renew_PlanNotFound(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, 1)

	paid := false
	svc.On("Renew", mock.Anything, 1, 10, RenewRequest{MembershipPlanID: 7, IsPaid: &paid}).Return(nil, plan.ErrPlanNotFound)

	w := doJSON(router, http.MethodPost, "/members/10/renew", `{"membershipPlanId":7,"isPaid":false}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Membership plan not found")
}

func TestHandler_Update_PlanField(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, 1)

	svc.On("UpdateDetails", mock.Anything, 1, 10, mock.MatchedBy(func(req UpdateRequest) bool {
		return req.MembershipPlanID.Set && req.MembershipPlanID.Value == nil && *req.Phone == "777"
	})).Return(&View{Member: Member{ID: 10}}, nil)

	w := doJSON(router, http.MethodPut, "/members/10", `{"phone":"777","membershipPlanId":null}`)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandler_UploadPhoto(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, 1)

	svc.On("UploadPhoto", mock.Anything, 1, 10, mock.MatchedBy(func(up *storage.Upload) bool {
		return up.ContentType == "image/png" && up.Ext == ".png"
	})).Return(&View{Member: Member{ID: 10}}, nil)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 1, 1))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "me.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/members/10/photo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandler_UploadPhoto_Missing(t *testing.T) {
	svc := new(MockService)
	w := doJSON(setupRouter(svc, 1), http.MethodPost, "/members/10/photo", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
