package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"flood-report-api/middleware"
	"flood-report-api/models"
	"flood-report-api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VolunteerHandler struct {
	db     *gorm.DB
	store  services.BlobStore
	logger *slog.Logger
}

func NewVolunteerHandler(db *gorm.DB, store services.BlobStore, logger *slog.Logger) *VolunteerHandler {
	return &VolunteerHandler{db: db, store: store, logger: logger}
}

// CreatePost submits a volunteer help request or offer at the coordinates
// in the path. The safety flags default to true when omitted.
func (h *VolunteerHandler) CreatePost(c *gin.Context) {
	latitude, longitude, ok := parseCoords(c)
	if !ok {
		return
	}

	post := models.VolunteerPost{
		Type:            c.PostForm("type"),
		UserType:        c.PostForm("user_type"),
		HelpDescription: c.PostForm("help_description"),
		Location:        c.PostForm("location"),
		Latitude:        latitude,
		Longitude:       longitude,
		UserID:          middleware.UserIDFrom(c),
	}
	if post.Type == "" || post.UserType == "" || post.HelpDescription == "" || post.Location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type, user_type, help_description and location are required"})
		return
	}

	imageTaken, ok := parseBoolForm(c, "image_taken", false)
	if !ok {
		return
	}
	post.ImageTaken = imageTaken

	areaSafe, ok := parseBoolForm(c, "area_safe", true)
	if !ok {
		return
	}
	post.AreaSafe = areaSafe

	noMedical, ok := parseBoolForm(c, "no_medical_emergency", true)
	if !ok {
		return
	}
	post.NoMedicalEmergency = noMedical

	if fileHeader, err := c.FormFile("image"); err == nil {
		ext, allowed := services.AllowedExtension(fileHeader.Filename)
		if !allowed {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}
		src, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
			return
		}
		name := uuid.NewString() + ext
		if err := h.store.Save(c.Request.Context(), name, data); err != nil {
			h.logger.Error("store volunteer image failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
			return
		}
		post.Image = &name
	}

	if err := h.db.Create(&post).Error; err != nil {
		if errors.Is(err, models.ErrImageTakenWithoutImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create post"})
		return
	}

	c.JSON(http.StatusCreated, post)
}

// PostWithDistance is a volunteer post annotated with the great-circle
// distance in miles from the requester.
type PostWithDistance struct {
	models.VolunteerPost
	Distance float64 `json:"distance"`
}

// GetPosts returns every volunteer post with its distance from the path
// coordinates. No filtering or ranking; the client sorts.
func (h *VolunteerHandler) GetPosts(c *gin.Context) {
	latitude, longitude, ok := parseCoords(c)
	if !ok {
		return
	}

	var posts []models.VolunteerPost
	if err := h.db.Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	annotated := make([]PostWithDistance, 0, len(posts))
	for _, post := range posts {
		annotated = append(annotated, PostWithDistance{
			VolunteerPost: post,
			Distance:      services.Haversine(latitude, longitude, post.Latitude, post.Longitude),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": annotated})
}

func parseCoords(c *gin.Context) (float64, float64, bool) {
	latitude, err := strconv.ParseFloat(c.Param("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude"})
		return 0, 0, false
	}
	longitude, err := strconv.ParseFloat(c.Param("lon"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude"})
		return 0, 0, false
	}
	return latitude, longitude, true
}

func parseBoolForm(c *gin.Context, field string, fallback bool) (bool, bool) {
	raw := c.PostForm(field)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + field})
		return false, false
	}
	return value, true
}
