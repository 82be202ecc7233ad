package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"flood-report-api/models"
	"flood-report-api/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newVolunteerRouter(t *testing.T, db *gorm.DB, store services.BlobStore) *gin.Engine {
	t.Helper()
	h := NewVolunteerHandler(db, store, discardLogger())
	router := gin.New()
	router.POST("/volunteer/:lat/:lon", h.CreatePost)
	router.GET("/volunteer/:lat/:lon", h.GetPosts)
	return router
}

func volunteerForm(overrides map[string]string) map[string]string {
	fields := map[string]string{
		"type":             "request",
		"user_type":        "resident",
		"help_description": "need sandbags",
		"location":         "Main St bridge",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	return fields
}

func TestCreatePost_SafetyFlagsDefaultTrue(t *testing.T) {
	db := newTestDB(t)
	router := newVolunteerRouter(t, db, newTestStore(t))

	req := multipartRequest(t, "/volunteer/40.9263/-74.0770", volunteerForm(nil), "", "", nil)
	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var post models.VolunteerPost
	require.NoError(t, db.First(&post).Error)
	assert.True(t, post.AreaSafe)
	assert.True(t, post.NoMedicalEmergency)
	assert.False(t, post.ImageTaken)
	assert.Equal(t, 40.9263, post.Latitude)
	assert.Equal(t, -74.0770, post.Longitude)
}

func TestCreatePost_ExplicitFalseFlagsPersist(t *testing.T) {
	db := newTestDB(t)
	router := newVolunteerRouter(t, db, newTestStore(t))

	req := multipartRequest(t, "/volunteer/40.9/-74.0", volunteerForm(map[string]string{
		"area_safe":            "false",
		"no_medical_emergency": "false",
	}), "", "", nil)
	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var post models.VolunteerPost
	require.NoError(t, db.First(&post).Error)
	assert.False(t, post.AreaSafe)
	assert.False(t, post.NoMedicalEmergency)
}

func TestCreatePost_ImageTakenWithoutImage(t *testing.T) {
	db := newTestDB(t)
	router := newVolunteerRouter(t, db, newTestStore(t))

	req := multipartRequest(t, "/volunteer/40.9/-74.0", volunteerForm(map[string]string{
		"image_taken": "true",
	}), "", "", nil)
	rec := serve(router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.VolunteerPost{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePost_ImageTakenWithImage(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	router := newVolunteerRouter(t, db, store)

	req := multipartRequest(t, "/volunteer/40.9/-74.0", volunteerForm(map[string]string{
		"image_taken": "true",
	}), "image", "scene.jpg", tinyJPEG(t))
	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var post models.VolunteerPost
	require.NoError(t, db.First(&post).Error)
	require.NotNil(t, post.Image)
	assert.True(t, post.ImageTaken)

	data, err := store.Load(req.Context(), *post.Image)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestCreatePost_MissingRequiredField(t *testing.T) {
	db := newTestDB(t)
	router := newVolunteerRouter(t, db, newTestStore(t))

	req := multipartRequest(t, "/volunteer/40.9/-74.0", volunteerForm(map[string]string{
		"help_description": "",
	}), "", "", nil)
	rec := serve(router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePost_InvalidCoordinates(t *testing.T) {
	db := newTestDB(t)
	router := newVolunteerRouter(t, db, newTestStore(t))

	req := multipartRequest(t, "/volunteer/north/west", volunteerForm(nil), "", "", nil)
	rec := serve(router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPosts_AnnotatesDistances(t *testing.T) {
	db := newTestDB(t)
	router := newVolunteerRouter(t, db, newTestStore(t))

	near := models.VolunteerPost{
		Type: "request", UserType: "resident", HelpDescription: "pump needed",
		Location: "river road", Latitude: 40.9263, Longitude: -74.0770,
		AreaSafe: true, NoMedicalEmergency: true,
	}
	far := models.VolunteerPost{
		Type: "offer", UserType: "volunteer", HelpDescription: "boat available",
		Location: "downtown LA", Latitude: 34.0522, Longitude: -118.2437,
		AreaSafe: true, NoMedicalEmergency: true,
	}
	require.NoError(t, db.Create(&near).Error)
	require.NoError(t, db.Create(&far).Error)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/volunteer/40.9263/-74.0770", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []PostWithDistance `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)

	byID := map[uint]PostWithDistance{}
	for _, p := range resp.Data {
		byID[p.ID] = p
	}
	assert.Zero(t, byID[near.ID].Distance)
	assert.Equal(t,
		services.Haversine(40.9263, -74.0770, far.Latitude, far.Longitude),
		byID[far.ID].Distance)
}
