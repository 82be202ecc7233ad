package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"flood-report-api/metrics"
	"flood-report-api/middleware"
	"flood-report-api/models"
	"flood-report-api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImagesHandler struct {
	db       *gorm.DB
	store    services.BlobStore
	queue    services.TaskQueue
	geocoder *services.GeocodeClient
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewImagesHandler(
	db *gorm.DB,
	store services.BlobStore,
	queue services.TaskQueue,
	geocoder *services.GeocodeClient,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ImagesHandler {
	return &ImagesHandler{
		db:       db,
		store:    store,
		queue:    queue,
		geocoder: geocoder,
		metrics:  m,
		logger:   logger,
	}
}

// UploadFlood ingests a geotagged flood report image. The blob is written
// before the row is committed; classification runs later, out of band.
func (h *ImagesHandler) UploadFlood(c *gin.Context) {
	latitude, err := strconv.ParseFloat(c.PostForm("latitude"), 64)
	if err != nil {
		h.metrics.Uploads.WithLabelValues("flood", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude"})
		return
	}
	longitude, err := strconv.ParseFloat(c.PostForm("longitude"), 64)
	if err != nil {
		h.metrics.Uploads.WithLabelValues("flood", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude"})
		return
	}
	altitude, err := strconv.ParseFloat(c.PostForm("altitude"), 64)
	if err != nil {
		h.metrics.Uploads.WithLabelValues("flood", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid altitude"})
		return
	}

	image := models.Image{
		Latitude:  &latitude,
		Longitude: &longitude,
		Altitude:  &altitude,
		UserID:    middleware.UserIDFrom(c),
	}
	h.ingest(c, "flood", &image, nil)
}

// UploadFinal ingests a final-survey report: an image plus three free-text
// answers instead of coordinates.
func (h *ImagesHandler) UploadFinal(c *gin.Context) {
	survey := models.FinalSurvey{
		AnswerOne:   c.PostForm("answer_one"),
		AnswerTwo:   c.PostForm("answer_two"),
		AnswerThree: c.PostForm("answer_three"),
	}
	if survey.AnswerOne == "" || survey.AnswerTwo == "" || survey.AnswerThree == "" {
		h.metrics.Uploads.WithLabelValues("final", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "all three answers are required"})
		return
	}

	image := models.Image{
		UserID: middleware.UserIDFrom(c),
	}
	h.ingest(c, "final", &image, &survey)
}

func (h *ImagesHandler) ingest(c *gin.Context, kind string, image *models.Image, survey *models.FinalSurvey) {
	fileName, data, ok := h.readUpload(c, kind)
	if !ok {
		return
	}

	// Blob write must succeed before any row exists.
	if err := h.store.Save(c.Request.Context(), fileName, data); err != nil {
		h.metrics.Uploads.WithLabelValues(kind, "error").Inc()
		h.logger.Error("store image failed", "file_name", fileName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return
	}

	image.FileName = fileName
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(image).Error; err != nil {
			return err
		}
		if survey != nil {
			survey.ImageID = image.ID
			if err := tx.Create(survey).Error; err != nil {
				return err
			}
			image.Survey = survey
		}
		return nil
	})
	if err != nil {
		h.metrics.Uploads.WithLabelValues(kind, "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create record"})
		return
	}

	// Best effort: a lost task leaves the image permanently unclassified,
	// which is a valid terminal state. The upload already succeeded.
	task := services.ClassificationTask{ImageID: image.ID, FileName: fileName}
	if err := h.queue.Enqueue(c.Request.Context(), task); err != nil {
		h.logger.Error("enqueue classification failed", "image_id", image.ID, "error", err)
	}

	h.metrics.Uploads.WithLabelValues(kind, "accepted").Inc()
	c.JSON(http.StatusCreated, image)
}

// readUpload validates the multipart file, normalizes its encoding and
// returns the bytes under a fresh random file name.
func (h *ImagesHandler) readUpload(c *gin.Context, kind string) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.metrics.Uploads.WithLabelValues(kind, "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", nil, false
	}

	ext, allowed := services.AllowedExtension(fileHeader.Filename)
	if !allowed {
		h.metrics.Uploads.WithLabelValues(kind, "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return "", nil, false
	}

	src, err := fileHeader.Open()
	if err != nil {
		h.metrics.Uploads.WithLabelValues(kind, "error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return "", nil, false
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		h.metrics.Uploads.WithLabelValues(kind, "error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return "", nil, false
	}

	normalized, storeExt, err := services.NormalizeImage(data, ext)
	if err != nil {
		h.metrics.Uploads.WithLabelValues(kind, "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image file"})
		return "", nil, false
	}

	return uuid.NewString() + storeExt, normalized, true
}

// GetByState groups all geotagged images into counties of the requested
// state. One reverse-geocode call per image; any image whose lookup fails
// or lacks address fields is skipped.
func (h *ImagesHandler) GetByState(c *gin.Context) {
	stateCode := c.Param("code")

	var images []models.Image
	if err := h.db.Preload("Classification").Find(&images).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	groups := map[string][]models.Image{}
	for _, image := range images {
		if image.Latitude == nil || image.Longitude == nil {
			continue
		}

		result, err := h.geocoder.Reverse(c.Request.Context(), *image.Latitude, *image.Longitude)
		if err != nil {
			h.logger.Warn("geocode failed, skipping image", "image_id", image.ID, "error", err)
			continue
		}
		if !result.MatchesState(stateCode) {
			continue
		}

		county := result.CountyName()
		groups[county] = append(groups[county], image)
	}

	c.JSON(http.StatusOK, groups)
}

// ListImages returns images newest first with cursor pagination.
func (h *ImagesHandler) ListImages(c *gin.Context) {
	p := ParsePagination(c)

	query := h.db.Preload("Classification").Order("created_at DESC").Limit(p.Limit + 1)
	if p.Before != nil {
		query = query.Where("created_at < ?", *p.Before)
	}

	var rows []models.Image
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	hasMore := len(rows) > p.Limit
	if hasMore {
		rows = rows[:p.Limit]
	}

	var nextCursor string
	if hasMore && len(rows) > 0 {
		nextCursor = rows[len(rows)-1].CreatedAt.Format(time.RFC3339Nano)
	}

	c.JSON(http.StatusOK, CursorResponse{Data: rows, NextCursor: nextCursor, HasMore: hasMore})
}
