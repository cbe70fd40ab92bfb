package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/andresclaroavocado/project-launcher-backend/internal/auth"
	"github.com/andresclaroavocado/project-launcher-backend/internal/config"
	"github.com/andresclaroavocado/project-launcher-backend/internal/conversation"
	"github.com/andresclaroavocado/project-launcher-backend/internal/gateway"
	"github.com/andresclaroavocado/project-launcher-backend/internal/metrics"
	"github.com/andresclaroavocado/project-launcher-backend/internal/pipeline"
	"github.com/andresclaroavocado/project-launcher-backend/internal/provider"
	"github.com/andresclaroavocado/project-launcher-backend/internal/tools"

	_ "github.com/andresclaroavocado/project-launcher-backend/docs" // swagger docs
)

// @title Project Launcher API
// @version 1.0
// @description Conversation-driven project generation API
// @description
// @description This API turns a free-form conversation about a software project into a
// @description structured specification, then drives scaffold generation, code generation,
// @description documentation, git setup, dependency installation and deployment through
// @description text-completion providers with ordered fallback.

// @contact.name API Support
// @contact.email support@project-launcher.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

func main() {
	// Initialize OpenTelemetry
	if err := initTracer(); err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	providerMetrics, err := metrics.NewProviderMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize provider metrics: %v", err)
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		log.Fatalf("Failed to configure providers: %v", err)
	}

	providerGateway, err := provider.NewGateway(providerMetrics, providers...)
	if err != nil {
		log.Fatalf("Failed to initialize provider gateway: %v", err)
	}

	opts := provider.Options{
		Model:       cfg.DefaultModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	// Tool catalog and dispatch
	handlers := tools.NewHandlers(providerGateway, tools.CommandGit{}, tools.CommandInstaller{}, tools.CommandDeployer{}, opts)
	dispatcher := tools.NewDispatcher(tools.DefaultRegistry(), handlers)

	// Conversation state
	store := conversation.NewStore()
	manager := conversation.NewManager(providerGateway, store, opts, cfg.MaxConversationLength)

	// Generation pipeline
	tracker := pipeline.NewTracker()
	runner := pipeline.NewRunner(dispatcher, tracker)
	outcomes := pipeline.NewOutcomeStore()

	// Initialize JWT manager
	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to initialize JWT manager: %v", err)
	}

	// Expire idle sessions in the background
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go runSessionCleanup(cleanupCtx, store, outcomes, cfg.ConversationTimeout)

	// Initialize gateway layer
	gatewayHandler := gateway.NewHandler(providerGateway, dispatcher, manager, runner, outcomes, jwtManager, cfg.OperatorEmail, cfg.OperatorPasswordHash)
	streamer := gateway.NewWebSocketStreamer(manager, tracker)

	// Setup Gin router
	router := gin.Default()

	// Add structured JSON logging middleware
	router.Use(structuredLoggingMiddleware())

	// Swagger documentation (public)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	gateway.RegisterRoutes(router, gatewayHandler, streamer, jwtManager)

	// A generation response is only written after the pipeline finishes.
	// Its worst case is structure + MaxFileRequests code files +
	// documentation, each walking every provider in the fallback chain, so
	// the write timeout is derived from that bound rather than guessed.
	providerCalls := pipeline.MaxFileRequests + 2
	writeTimeout := time.Duration(providerCalls*len(cfg.ProviderOrder))*cfg.ProviderTimeout + 5*time.Second

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting Project Launcher API server on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopCleanup()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// buildProviders constructs the provider clients in the configured fallback
// order.
func buildProviders(cfg *config.Config) ([]provider.Provider, error) {
	providers := make([]provider.Provider, 0, len(cfg.ProviderOrder))
	for _, name := range cfg.ProviderOrder {
		switch name {
		case "anthropic":
			providers = append(providers, provider.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.ProviderTimeout))
		case "goose_ai":
			providers = append(providers, provider.NewGooseAIClient(cfg.GooseAIAPIKey, cfg.ProviderTimeout))
		default:
			return nil, fmt.Errorf("unknown provider in PROVIDER_ORDER: %s", name)
		}
	}
	return providers, nil
}

// runSessionCleanup periodically drops sessions idle longer than maxAge,
// along with any retained pipeline outcome.
func runSessionCleanup(ctx context.Context, store *conversation.Store, outcomes *pipeline.OutcomeStore, maxAge time.Duration) {
	ticker := time.NewTicker(maxAge / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, id := range store.CleanupExpired(maxAge) {
				outcomes.Delete(id)
			}
		case <-ctx.Done():
			return
		}
	}
}

// initTracer initializes OpenTelemetry tracing
func initTracer() error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return nil
}

// structuredLoggingMiddleware provides structured JSON logging for all requests
func structuredLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Calculate latency
		latency := time.Since(start)

		// Get user ID from context if available
		userID, _ := c.Get("user_id")

		// Build log entry
		logEntry := map[string]interface{}{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}

		// Add user ID if authenticated
		if userID != nil {
			logEntry["user_id"] = userID
		}

		// Add error if present
		if len(c.Errors) > 0 {
			logEntry["errors"] = c.Errors.String()
		}

		// Output as JSON
		logJSON, _ := json.Marshal(logEntry)
		log.Println(string(logJSON))
	}
}
