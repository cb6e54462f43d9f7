package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"medical-triage-agent/internal/classifier"
	"medical-triage-agent/internal/config"
	"medical-triage-agent/internal/dialogue"
	"medical-triage-agent/internal/knowledge"
	"medical-triage-agent/internal/platform/telegram"
	"medical-triage-agent/internal/report"
	"medical-triage-agent/internal/triage"
)

func main() {
	// 1. Configuration
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Startup artifacts. Both loads are fatal: the engine must not
	// serve traffic with a partial knowledge base or model.
	kbStore, err := knowledge.OpenStore(cfg.KnowledgeBasePath)
	if err != nil {
		log.Fatalf("Knowledge base load failed: %v", err)
	}
	artifact, err := classifier.Load(cfg.ArtifactPath, kbStore.Current())
	if err != nil {
		log.Fatalf("Classifier artifact load failed: %v", err)
	}
	modelHandle := classifier.NewHandle(artifact)
	log.Printf("Loaded knowledge base (%d symptoms, %d diseases) and classifier artifact version %s.",
		len(kbStore.Current().SymptomIDs()), len(kbStore.Current().DiseaseIDs()), artifact.Version())

	// 3. Session store: Postgres when configured, in-memory otherwise.
	var repo dialogue.Repository
	if cfg.DatabaseURL != "" {
		var db *sql.DB
		for i := 0; i < 10; i++ {
			db, err = sql.Open("postgres", cfg.DatabaseURL)
			if err == nil {
				err = db.Ping()
			}
			if err == nil {
				break
			}
			fmt.Printf("Waiting for DB... (%d/10)\n", i+1)
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			log.Fatalf("Could not connect to DB: %v", err)
		}
		log.Println("Connected to Database.")

		m, err := migrate.New(cfg.MigrationsDir, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Migration init failed: %v", err)
		} else if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Printf("Migration up failed: %v", err)
		} else {
			log.Println("Migrations applied successfully!")
		}

		repo = dialogue.NewRepository(db)
	} else {
		log.Println("DATABASE_URL not set, using in-memory session store.")
		repo = dialogue.NewMemoryRepository()
	}

	// 4. Services
	var reportSvc dialogue.ReportService
	if cfg.TelegramBotToken != "" && cfg.DoctorChatID != 0 {
		tgClient := telegram.NewClient(cfg.TelegramBotToken)
		reportSvc = report.NewService(tgClient, cfg.DoctorChatID)
	} else {
		log.Println("Warning: Telegram report delivery not configured, concluded sessions will not be forwarded.")
	}

	svc := dialogue.NewService(
		repo,
		kbStore,
		modelHandle,
		triage.NewExtractor(),
		triage.NewRanker(triage.RankerConfig{
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			AmbiguityMargin:     cfg.AmbiguityMargin,
		}),
		triage.NewSelector(cfg.FollowupTopK),
		triage.NewComposer(triage.ComposerConfig{
			FinalizeThreshold: cfg.ConfidenceThreshold,
			TopN:              cfg.InconclusiveTopN,
		}),
		reportSvc,
		dialogue.Config{MaxTurns: cfg.MaxTurns},
	)
	handler := dialogue.NewHandler(svc)

	// 5. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		dialogue.RegisterRoutes(r, handler)
	})

	fmt.Printf("Server starting on port %s...\n", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
