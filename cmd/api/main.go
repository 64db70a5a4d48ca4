package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/SISIYAM/apars/internal/absence"
	"github.com/SISIYAM/apars/internal/apperr"
	"github.com/SISIYAM/apars/internal/attendance"
	"github.com/SISIYAM/apars/internal/config"
	"github.com/SISIYAM/apars/internal/dateutil"
	"github.com/SISIYAM/apars/internal/export"
	"github.com/SISIYAM/apars/internal/httpmiddleware"
	"github.com/SISIYAM/apars/internal/logging"
	"github.com/SISIYAM/apars/internal/metrics"
	"github.com/SISIYAM/apars/internal/pagination"
	"github.com/SISIYAM/apars/internal/queue"
	"github.com/SISIYAM/apars/internal/roster"
	"github.com/SISIYAM/apars/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, logger zerolog.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "apars:jobs")
	}

	rosterRepo := roster.NewRepository(db.Client)
	attendanceRepo := attendance.NewRepository(db.Client)
	absenceRepo := absence.NewRepository(db.Client)
	calculator := absence.NewCalculator(absence.NewSQLStore(db.Client), logger)

	r := gin.New()

	r.Use(gin.Recovery())

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Registration process: create or update a profile with its course
	// enrollments.
	r.POST("/v1/students", func(c *gin.Context) {
		var p roster.Profile
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if p.StudentID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		saved, err := rosterRepo.Upsert(c.Request.Context(), p)
		if err != nil {
			fail(c, logger, apperr.Persistence("upsert profile", err))
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": saved})
	})

	// Check-in process: record one attendance event.
	r.POST("/v1/checkins", func(c *gin.Context) {
		var req struct {
			StudentID   string `json:"student_id" binding:"required"`
			Name        string `json:"name"`
			Roll        string `json:"roll"`
			Phone       string `json:"phone"`
			Institution string `json:"institution"`
			Batch       string `json:"batch"`
			Branch      string `json:"branch"`
			OccurredAt  string `json:"occurred_at"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		evt := attendance.Event{
			StudentID:   req.StudentID,
			Name:        req.Name,
			Roll:        req.Roll,
			Phone:       req.Phone,
			Institution: req.Institution,
			Batch:       req.Batch,
			Branch:      req.Branch,
		}
		if req.OccurredAt != "" {
			when, perr := time.Parse(time.RFC3339, req.OccurredAt)
			if perr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
			evt.OccurredAt = when.UTC()
		}
		saved, err := attendanceRepo.InsertEvent(c.Request.Context(), evt)
		if err != nil {
			fail(c, logger, apperr.Persistence("insert event", err))
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": saved})
	})

	r.POST("/v1/absences/calculate", func(c *gin.Context) {
		var req struct {
			Date   string `json:"date" binding:"required"`
			Branch string `json:"branch"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		absent, err := calculator.Compute(c.Request.Context(), req.Date, req.Branch)
		if err != nil {
			fail(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "absent students calculated",
			"data":    absent,
		})
	})

	// Deferred computation: enqueue the job for the worker instead of
	// running it in-request.
	r.POST("/v1/absences/schedule", func(c *gin.Context) {
		var req struct {
			Date   string `json:"date" binding:"required"`
			Branch string `json:"branch" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if _, err := dateutil.ParseDay(req.Date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		msg, err := queue.NewComputeMessage(queue.ComputeJob{Date: req.Date, Branch: req.Branch})
		if err == nil {
			err = q.Publish(c.Request.Context(), msg)
		}
		if err != nil {
			fail(c, logger, apperr.Persistence("enqueue job", err))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "calculation scheduled"})
	})

	r.GET("/v1/attendances", func(c *gin.Context) {
		f, err := attendanceFilter(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		page := pagination.Page(queryInt(c, "page", 1))
		events, err := attendanceRepo.ListFiltered(c.Request.Context(), f, pagination.PageSize, pagination.Offset(page))
		if err != nil {
			fail(c, logger, apperr.Persistence("list events", err))
			return
		}
		total, err := attendanceRepo.CountFiltered(c.Request.Context(), f)
		if err != nil {
			fail(c, logger, apperr.Persistence("count events", err))
			return
		}
		if events == nil {
			events = []attendance.Event{}
		}
		c.JSON(http.StatusOK, gin.H{
			"data":        events,
			"page":        page,
			"total":       total,
			"total_pages": pagination.TotalPages(total),
		})
	})

	r.GET("/v1/absences", func(c *gin.Context) {
		f, err := absenceFilter(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		page := pagination.Page(queryInt(c, "page", 1))
		records, err := absenceRepo.ListFiltered(c.Request.Context(), f, pagination.PageSize, pagination.Offset(page))
		if err != nil {
			fail(c, logger, apperr.Persistence("list absences", err))
			return
		}
		total, err := absenceRepo.CountFiltered(c.Request.Context(), f)
		if err != nil {
			fail(c, logger, apperr.Persistence("count absences", err))
			return
		}
		if records == nil {
			records = []absence.Record{}
		}
		c.JSON(http.StatusOK, gin.H{
			"data":        records,
			"page":        page,
			"total":       total,
			"total_pages": pagination.TotalPages(total),
		})
	})

	r.GET("/v1/students", func(c *gin.Context) {
		branch := c.Query("branch")
		page := pagination.Page(queryInt(c, "page", 1))
		profiles, err := rosterRepo.ListPage(c.Request.Context(), branch, pagination.PageSize, pagination.Offset(page))
		if err != nil {
			fail(c, logger, apperr.Persistence("list profiles", err))
			return
		}
		total, err := rosterRepo.Count(c.Request.Context(), branch)
		if err != nil {
			fail(c, logger, apperr.Persistence("count profiles", err))
			return
		}
		if profiles == nil {
			profiles = []roster.Profile{}
		}
		c.JSON(http.StatusOK, gin.H{
			"data":        profiles,
			"page":        page,
			"total":       total,
			"total_pages": pagination.TotalPages(total),
		})
	})

	r.GET("/v1/export", func(c *gin.Context) {
		var rows []export.Row
		switch c.DefaultQuery("store", "attendance") {
		case "attendance":
			f, err := attendanceFilter(c)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
			events, err := attendanceRepo.ListAllFiltered(c.Request.Context(), f)
			if err != nil {
				fail(c, logger, apperr.Persistence("export events", err))
				return
			}
			rows = export.FromEvents(events)
		case "absence":
			f, err := absenceFilter(c)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
			records, err := absenceRepo.ListAllFiltered(c.Request.Context(), f)
			if err != nil {
				fail(c, logger, apperr.Persistence("export absences", err))
				return
			}
			rows = export.FromRecords(records)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		path, name, cleanup, err := export.WriteFile(cfg.ExportDir, rows)
		if err != nil {
			fail(c, logger, err)
			return
		}
		defer cleanup()
		metrics.ExportRows.Add(float64(len(rows)))
		c.FileAttachment(path, name)
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced shutdown")
	}

	logger.Info().Msg("server exited")
	return nil
}

// fail logs the full error and returns the fixed generic response; callers
// never see store details or error codes.
func fail(c *gin.Context, logger zerolog.Logger, err error) {
	logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	if errors.Is(err, apperr.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "request failed"})
}

// attendanceFilter builds the ANDed listing filter from query params; absent
// params are omitted.
func attendanceFilter(c *gin.Context) (attendance.Filter, error) {
	f := attendance.Filter{
		Branch: c.Query("branch"),
		Batch:  c.Query("batch"),
	}
	if date := c.Query("date"); date != "" {
		day, err := dateutil.ParseDay(date)
		if err != nil {
			return attendance.Filter{}, err
		}
		f.From, f.To = dateutil.DayBounds(day)
	}
	return f, nil
}

func absenceFilter(c *gin.Context) (absence.Filter, error) {
	f := absence.Filter{
		Branch: c.Query("branch"),
		Batch:  c.Query("batch"),
	}
	if date := c.Query("date"); date != "" {
		day, err := dateutil.ParseDay(date)
		if err != nil {
			return absence.Filter{}, err
		}
		f.Date = day
	}
	return f, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
