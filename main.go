package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"prospect-hand/config"
	"prospect-hand/models"
	"prospect-hand/providers"
	"prospect-hand/providers/serpapi"
	"prospect-hand/providers/synthetic"
	"prospect-hand/relay"
	"prospect-hand/services"
	"prospect-hand/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	researchJobsCounter  *prometheus.CounterVec
	searchQueriesCounter prometheus.Counter
)

func init() {
	researchJobsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_jobs_total",
			Help: "Total number of research jobs by final status.",
		},
		[]string{"status"},
	)
	searchQueriesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "search_queries_issued_total",
			Help: "Total number of search queries issued against the active provider.",
		},
	)
	prometheus.MustRegister(researchJobsCounter, searchQueriesCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		// Der WebSocket-Endpunkt bleibt ohne Key erreichbar, Browser können
		// beim Upgrade keine Custom-Header setzen.
		if c.FullPath() == "/ws/progress" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	// Auto-Migration
	if gin.Mode() == gin.DebugMode {
		logging.Info("Debug mode detected. Dropping tables for fresh start.")
		db.Migrator().DropTable(&models.SearchLog{}, &models.ContextSnippet{}, &models.Person{}, &models.Company{}, &models.Campaign{})
	}
	logging.Info("Running database auto-migration...")
	db.AutoMigrate(&models.Campaign{}, &models.Company{}, &models.Person{}, &models.ContextSnippet{}, &models.SearchLog{})

	// Seeding
	seedDemoData(db, logging)

	// Provider-Strategie: einmal beim Start auflösen. Mit erreichbarer
	// SerpAPI läuft der Dienst live, sonst deterministisch synthetisch.
	fallback := synthetic.NewGenerator(logging)
	var live providers.Provider
	if cfg.SerpAPIKey != "" {
		fetcher := serpapi.NewFetcher(cfg, logging)
		probeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := fetcher.Probe(probeCtx); err != nil {
			logging.Warn("SerpAPI nicht erreichbar, falle auf synthetischen Modus zurück", zap.Error(err))
		} else {
			live = fetcher
		}
		cancel()
	} else {
		logging.Info("Kein SerpAPI-Key konfiguriert, nutze synthetischen Modus.")
	}
	adapter := providers.NewAdapter(live, fallback, logging)
	activeMode := providers.ModeSynthetic
	if adapter.LiveConfigured() {
		activeMode = providers.ModeLive
	}
	logging.Info("Search provider active", zap.String("mode", activeMode))

	// Setup Services
	broker := relay.NewBroker(cfg.ProgressBuffer, logging)
	progressManager := relay.NewManager(broker, logging)
	researchService := services.NewResearchService(cfg, db, adapter, broker, logging)
	if cfg.ArchiveEnabled() {
		archive, err := storage.NewArchive(cfg)
		if err != nil {
			logging.Fatal("Archive client creation failed", zap.Error(err))
		}
		researchService.Archiver = archive
		logging.Info("Report-Archiv aktiviert", zap.String("bucket", cfg.ArchiveS3Bucket))
	}
	dispatcher := services.NewDispatcher(
		researchService,
		cfg.WorkerCount,
		time.Duration(cfg.JobTimeoutSeconds)*time.Second,
		time.Duration(cfg.JobRetentionMinutes)*time.Minute,
		logging,
	)
	dispatcher.OnFinish = func(job services.Job) {
		researchJobsCounter.WithLabelValues(string(job.Status)).Inc()
		if job.Result != nil {
			searchQueriesCounter.Add(float64(job.Result.QueriesIssued))
		}
	}

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupCampaignRoutes(router, db, logging)
	setupCompanyRoutes(router, db, researchService, logging)
	setupPersonRoutes(router, db, logging)
	setupResearchRoutes(router, db, dispatcher, logging)
	setupProgressRoutes(router, progressManager, logging)
	setupHealthRoutes(router, db, adapter, progressManager, dispatcher)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		removed := dispatcher.PurgeExpired()
		if removed > 0 {
			logging.Info("Scheduled job purge completed", zap.Int("removed", removed))
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupCampaignRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/campaigns")

	rg.POST("/", func(c *gin.Context) {
		var campaign models.Campaign
		if err := c.ShouldBindJSON(&campaign); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if campaign.Status == "" {
			campaign.Status = "draft"
		}
		if err := db.Create(&campaign).Error; err != nil {
			log.Error("Failed to create campaign", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create campaign"})
			return
		}
		c.JSON(http.StatusCreated, campaign)
	})

	rg.GET("/", func(c *gin.Context) {
		var campaigns []models.Campaign
		if err := db.Order("created_at desc").Find(&campaigns).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, campaigns)
	})

	rg.GET("/:id", func(c *gin.Context) {
		var campaign models.Campaign
		if err := db.First(&campaign, c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, campaign)
	})

	rg.PATCH("/:id", func(c *gin.Context) {
		id := c.Param("id")
		var campaign models.Campaign
		if err := db.First(&campaign, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		// Nur die gesendeten Felder binden, um Überschreiben zu verhindern
		var updateData map[string]interface{}
		if err := c.ShouldBindJSON(&updateData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := db.Model(&campaign).Updates(updateData).Error; err != nil {
			log.Error("DB error updating campaign", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update campaign"})
			return
		}
		c.JSON(http.StatusOK, campaign)
	})
}

func setupCompanyRoutes(router *gin.Engine, db *gorm.DB, researchService *services.ResearchService, log *zap.Logger) {
	rg := router.Group("/companies")

	rg.POST("/", func(c *gin.Context) {
		var company models.Company
		if err := c.ShouldBindJSON(&company); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := db.Create(&company).Error; err != nil {
			log.Error("Failed to create company", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create company"})
			return
		}
		c.JSON(http.StatusCreated, company)
	})

	rg.GET("/", func(c *gin.Context) {
		query := db.Model(&models.Company{})
		if campaignID := c.Query("campaign_id"); campaignID != "" {
			query = query.Where("campaign_id = ?", campaignID)
		}
		var companies []models.Company
		if err := query.Order("created_at desc").Find(&companies).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, companies)
	})

	rg.GET("/:id", func(c *gin.Context) {
		var company models.Company
		if err := db.First(&company, c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, company)
	})

	// GET - Aggregiertes Recherche-Snippet einer Firma, inklusive der
	// verknüpften Such-Logs.
	rg.GET("/:id/snippet", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company id"})
			return
		}

		snippet, err := researchService.Store.ExistingForCompany(uint(id))
		if err != nil {
			log.Error("Failed to load snippet", zap.Uint64("company_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if snippet == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no research snippet for company"})
			return
		}

		var logs []models.SearchLog
		if err := db.Where("context_snippet_id = ?", snippet.ID).Order("created_at asc").Find(&logs).Error; err != nil {
			log.Warn("Failed to load search logs for snippet", zap.Uint("snippet_id", snippet.ID), zap.Error(err))
		}

		c.JSON(http.StatusOK, gin.H{
			"snippet":     snippet,
			"insights":    snippet.Insights(),
			"source_urls": snippet.Sources(),
			"search_logs": logs,
		})
	})
}

func setupPersonRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/people")

	rg.POST("/", func(c *gin.Context) {
		var person models.Person
		if err := c.ShouldBindJSON(&person); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		var company models.Company
		if err := db.First(&company, person.CompanyID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "company does not exist"})
			return
		}
		if err := db.Create(&person).Error; err != nil {
			log.Error("Failed to create person", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create person"})
			return
		}
		c.JSON(http.StatusCreated, person)
	})

	rg.GET("/", func(c *gin.Context) {
		query := db.Model(&models.Person{})
		if companyID := c.Query("company_id"); companyID != "" {
			query = query.Where("company_id = ?", companyID)
		}
		var people []models.Person
		if err := query.Order("created_at desc").Find(&people).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, people)
	})

	rg.GET("/:id", func(c *gin.Context) {
		var person models.Person
		if err := db.First(&person, c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, person)
	})
}

func setupResearchRoutes(router *gin.Engine, db *gorm.DB, dispatcher *services.Dispatcher, log *zap.Logger) {
	rg := router.Group("/research")

	// POST - Recherche-Job für eine Person anstoßen. Antwortet sofort mit
	// dem Job-Handle, der Lauf selbst passiert im Worker-Pool.
	rg.POST("/person/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
			return
		}
		var person models.Person
		if err := db.First(&person, uint(id)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		job, err := dispatcher.Submit(uint(id))
		if err != nil {
			if errors.Is(err, services.ErrQueueFull) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue full, try again later"})
				return
			}
			log.Error("Failed to submit research job", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit job"})
			return
		}
		c.JSON(http.StatusAccepted, job)
	})

	// GET - Status eines Jobs abfragen.
	rg.GET("/jobs/:id", func(c *gin.Context) {
		job := dispatcher.Get(c.Param("id"))
		if job == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusOK, job)
	})
}

// setupProgressRoutes konfiguriert den WebSocket-Endpunkt für Fortschritts-Events.
func setupProgressRoutes(router *gin.Engine, manager *relay.Manager, log *zap.Logger) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	router.GET("/ws/progress", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error("WebSocket upgrade failed", zap.Error(err))
			return
		}
		manager.Register(conn)
	})
}

func setupHealthRoutes(router *gin.Engine, db *gorm.DB, adapter *providers.Adapter, manager *relay.Manager, dispatcher *services.Dispatcher) {
	router.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			dbStatus = "unavailable"
		}
		mode := providers.ModeSynthetic
		if adapter.LiveConfigured() {
			mode = providers.ModeLive
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"database":    dbStatus,
			"search_mode": mode,
			"observers":   manager.Count(),
			"jobs_held":   dispatcher.Count(),
		})
	})
}

func seedDemoData(db *gorm.DB, logger *zap.Logger) {
	var count int64
	db.Model(&models.Campaign{}).Count(&count)
	if count > 0 {
		return
	}

	campaign := models.Campaign{Name: "Demo Outreach Q3", Status: "active"}
	if err := db.Create(&campaign).Error; err != nil {
		logger.Warn("Failed to seed demo campaign", zap.Error(err))
		return
	}
	company := models.Company{Name: "Acme Corp", Domain: "acme.example.com", CampaignID: campaign.ID}
	if err := db.Create(&company).Error; err != nil {
		logger.Warn("Failed to seed demo company", zap.Error(err))
		return
	}
	person := models.Person{FullName: "Jordan Doe", Email: "jordan.doe@acme.example.com", Title: "VP Engineering", CompanyID: company.ID}
	if err := db.Create(&person).Error; err != nil {
		logger.Warn("Failed to seed demo person", zap.Error(err))
		return
	}
	logger.Info("Demo data seeded.", zap.Uint("campaign_id", campaign.ID), zap.Uint("person_id", person.ID))
}
