package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"flood-report-api/metrics"
	"flood-report-api/models"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ClassificationTask is the unit of work handed from the upload path to the
// classifier workers.
type ClassificationTask struct {
	ImageID  uint   `json:"image_id"`
	FileName string `json:"file_name"`
}

// TaskQueue decouples classification dispatch from the request path.
// Delivery is at-most-once: a dequeued task that fails is dropped, never
// re-queued.
type TaskQueue interface {
	Enqueue(ctx context.Context, task ClassificationTask) error
	Dequeue(ctx context.Context) (ClassificationTask, error)
}

// RedisTaskQueue backs the queue with a Redis list. There is no ack step,
// so a popped task that fails mid-flight stays dropped.
type RedisTaskQueue struct {
	client *redis.Client
}

func NewRedisTaskQueue(rs *RedisService) *RedisTaskQueue {
	return &RedisTaskQueue{client: rs.Client()}
}

func (q *RedisTaskQueue) Enqueue(ctx context.Context, task ClassificationTask) error {
	if q.client == nil {
		return errors.New("redis unavailable")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, TaskList, data).Err()
}

func (q *RedisTaskQueue) Dequeue(ctx context.Context) (ClassificationTask, error) {
	if q.client == nil {
		return ClassificationTask{}, errors.New("redis unavailable")
	}
	res, err := q.client.BRPop(ctx, 0, TaskList).Result()
	if err != nil {
		return ClassificationTask{}, err
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return ClassificationTask{}, fmt.Errorf("unexpected BRPOP reply length %d", len(res))
	}
	var task ClassificationTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return ClassificationTask{}, fmt.Errorf("decode task: %w", err)
	}
	return task, nil
}

// ChannelTaskQueue is an in-process queue used by tests and single-node
// deployments without Redis.
type ChannelTaskQueue struct {
	ch chan ClassificationTask
}

func NewChannelTaskQueue(size int) *ChannelTaskQueue {
	return &ChannelTaskQueue{ch: make(chan ClassificationTask, size)}
}

func (q *ChannelTaskQueue) Enqueue(ctx context.Context, task ClassificationTask) error {
	select {
	case q.ch <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ChannelTaskQueue) Dequeue(ctx context.Context) (ClassificationTask, error) {
	select {
	case task := <-q.ch:
		return task, nil
	case <-ctx.Done():
		return ClassificationTask{}, ctx.Err()
	}
}

// ClassificationEvent is published after a successful classification for the
// live websocket feed.
type ClassificationEvent struct {
	ImageID           uint      `json:"image_id"`
	FloodLevel        bool      `json:"flood_level"`
	DangerLevel       int       `json:"danger_level"`
	AnnotatedFileName string    `json:"annotated_file_name"`
	Timestamp         time.Time `json:"timestamp"`
}

// ClassifierWorker consumes classification tasks and attaches results to
// image records. Failures are logged and dropped; an image with no
// classification is a valid terminal state.
type ClassifierWorker struct {
	db         *gorm.DB
	queue      TaskQueue
	classifier *ClassifierClient
	store      BlobStore
	events     *RedisService
	metrics    *metrics.Metrics
	clock      clockwork.Clock
	logger     *slog.Logger
	workers    int
}

func NewClassifierWorker(
	db *gorm.DB,
	queue TaskQueue,
	classifier *ClassifierClient,
	store BlobStore,
	events *RedisService,
	m *metrics.Metrics,
	clock clockwork.Clock,
	logger *slog.Logger,
	workers int,
) *ClassifierWorker {
	return &ClassifierWorker{
		db:         db,
		queue:      queue,
		classifier: classifier,
		store:      store,
		events:     events,
		metrics:    m,
		clock:      clock,
		logger:     logger,
		workers:    workers,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled. Tasks
// already dequeued run to completion; cancellation never interrupts an
// in-flight classification.
func (w *ClassifierWorker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := w.queue.Dequeue(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					w.logger.Error("dequeue failed", "error", err)
					continue
				}
				w.Process(task)
			}
		}()
	}
	wg.Wait()
}

// Process runs one classification end to end, detached from the request
// that produced the task.
func (w *ClassifierWorker) Process(task ClassificationTask) {
	ctx := context.Background()

	data, err := w.store.Load(ctx, task.FileName)
	if err != nil {
		w.drop(task, "load image", err)
		return
	}

	result, err := w.classifier.Classify(ctx, task.FileName, data)
	if err != nil {
		w.drop(task, "classify", err)
		return
	}

	annotated, err := base64.StdEncoding.DecodeString(result.AnnotatedImage)
	if err != nil {
		w.drop(task, "decode annotated image", err)
		return
	}

	annotatedName := AnnotatedFileName(task.FileName)
	if err := w.store.Save(ctx, annotatedName, annotated); err != nil {
		w.drop(task, "save annotated image", err)
		return
	}

	classification := models.ImageClassification{
		ImageID:           task.ImageID,
		FloodLevel:        result.FloodDetected(),
		DangerLevel:       result.DangerLevel,
		AnnotatedFileName: annotatedName,
	}
	if err := w.db.Create(&classification).Error; err != nil {
		w.drop(task, "insert classification", err)
		return
	}

	w.metrics.Classifications.WithLabelValues("success").Inc()
	w.logger.Info("image classified",
		"image_id", task.ImageID,
		"flood_level", classification.FloodLevel,
		"danger_level", classification.DangerLevel,
	)

	if w.events != nil {
		event := ClassificationEvent{
			ImageID:           task.ImageID,
			FloodLevel:        classification.FloodLevel,
			DangerLevel:       classification.DangerLevel,
			AnnotatedFileName: annotatedName,
			Timestamp:         w.clock.Now(),
		}
		if err := w.events.Publish(ctx, EventsChannel, event); err != nil {
			w.logger.Warn("publish classification event failed", "image_id", task.ImageID, "error", err)
		}
	}
}

func (w *ClassifierWorker) drop(task ClassificationTask, stage string, err error) {
	w.metrics.Classifications.WithLabelValues("failure").Inc()
	w.logger.Error("classification dropped",
		"image_id", task.ImageID,
		"stage", stage,
		"error", err,
	)
}

// AnnotatedFileName derives the overlay file name from the stored original.
func AnnotatedFileName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName)) + "_annotated.jpg"
}
