package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/skillcheck/backend/internal/auth"
	"github.com/skillcheck/backend/internal/database"
	"github.com/skillcheck/backend/internal/generation"
	"github.com/skillcheck/backend/internal/grading"
	"github.com/skillcheck/backend/internal/llm"
	"github.com/skillcheck/backend/internal/middleware"
	"github.com/skillcheck/backend/internal/quality"
	"github.com/skillcheck/backend/internal/scoring"
)

func main() {
	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// LLM client shared by generation, quality, and scoring
	client, model := llm.NewFromEnv()

	// Quality gate and safety filter
	qualityCfg := quality.DefaultConfig()
	gate := quality.NewGate(quality.NewEvaluator(client, qualityCfg), qualityCfg)
	safety := quality.NewSafetyFilter()

	// Generation pipeline
	lookups := generation.NewSQLLookups(db)
	genStore := generation.NewStore(db)
	genService := generation.NewService(client, model, lookups, lookups, lookups, safety, gate, genStore, generation.DefaultConfig())
	genHandler := generation.NewHandler(genService)

	// Answer scoring
	scoringCfg := scoring.DefaultConfig()
	scoringStore := scoring.NewStore(db)
	scorer := scoring.NewScorer(client, scoringCfg)
	explainer := scoring.NewExplanationGenerator(client, scoringCfg)
	scoringService := scoring.NewService(scoringStore, scoringStore, scorer, explainer, scoringCfg)
	scoringHandler := scoring.NewHandler(scoringService)

	// Grading and badges
	leaderboard := grading.NewLeaderboardCache(os.Getenv("REDIS_ADDR"))
	gradingStore := grading.NewStore(db)
	gradingService := grading.NewService(gradingStore, leaderboard, grading.DefaultConfig())
	gradingHandler := grading.NewHandler(gradingService)

	authHandler := auth.NewHandler(db)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/questions/generate", genHandler.GenerateQuestions).Methods("POST")
	protected.HandleFunc("/questions/{id:[0-9]+}/assessment", genHandler.ImportAssessment).Methods("POST")
	protected.HandleFunc("/questions/{id:[0-9]+}/revalidate", genHandler.Revalidate).Methods("POST")
	protected.HandleFunc("/questions/{id:[0-9]+}/validations", genHandler.GetValidations).Methods("GET")
	protected.HandleFunc("/questions/{id:[0-9]+}/answer", scoringHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/answers/batch", scoringHandler.SubmitBatch).Methods("POST")
	protected.HandleFunc("/rounds", gradingHandler.RecordRound).Methods("POST")
	protected.HandleFunc("/grade", gradingHandler.GetGrade).Methods("GET")
	protected.HandleFunc("/badges", gradingHandler.GetBadges).Methods("GET")
	protected.HandleFunc("/leaderboard", gradingHandler.GetLeaderboard).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
