// Package main implements the rover relay broker entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/audit"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/auth"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/config"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/relay"
)

const Version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults to $ROVER_CONFIG)")
	issueSubject := flag.String("issue-token", "", "print a token for this subject and exit")
	issueScopes := flag.String("scopes", auth.ScopeControl+","+auth.ScopeTelemetry, "comma-separated scopes for -issue-token")
	issueTTL := flag.Duration("ttl", 24*time.Hour, "lifetime for -issue-token")
	flag.Parse()

	log.Printf("Starting rover relay v%s", Version)

	// Step 1: Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully")

	// Step 2: Initialize logging
	loggerFactory, logCloser, err := config.NewLoggerFactory(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logCloser.Close()

	// Step 3: Initialize auth
	authMiddleware := auth.NewMiddleware()
	if cfg.Auth.Secret != "" {
		verifier, err := auth.NewVerifier(auth.VerifierConfig{
			SecretKey: cfg.Auth.Secret,
			Issuer:    cfg.Auth.Issuer,
		})
		if err != nil {
			log.Fatalf("Failed to create token verifier: %v", err)
		}

		if *issueSubject != "" {
			token, err := verifier.IssueToken(*issueSubject, strings.Split(*issueScopes, ","), *issueTTL)
			if err != nil {
				log.Fatalf("Failed to issue token: %v", err)
			}
			fmt.Println(token)
			return
		}

		authMiddleware = auth.NewMiddlewareWithVerifier(verifier)
		log.Println("Endpoint auth enabled")
	} else {
		if *issueSubject != "" {
			log.Fatal("Cannot issue tokens: auth.secret is not configured")
		}
		log.Println("Endpoint auth disabled")
	}

	// Step 4: Initialize audit logger
	var auditLogger *audit.Logger
	if cfg.Audit.Dir != "" {
		auditLogger, err = audit.NewLogger(audit.Config{
			Dir:        cfg.Audit.Dir,
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAgeDays: cfg.Audit.MaxAgeDays,
			Compress:   cfg.Audit.Compress,
		})
		if err != nil {
			log.Fatalf("Failed to initialize audit logger: %v", err)
		}
		log.Printf("Audit logger writing to %s", auditLogger.FilePath())
	}

	// Step 5: Create broker
	broker := relay.NewBroker(loggerFactory)
	if auditLogger != nil {
		broker.SetAuditLogger(auditLogger)
	}

	// Step 6: Create relay server
	server := relay.NewServer(broker, authMiddleware, relay.ServerConfig{
		Addr:           cfg.Relay.Addr,
		StaticDir:      cfg.Relay.StaticDir,
		AllowedOrigins: cfg.Relay.AllowedOrigins,
		PingInterval:   cfg.Relay.PingInterval,
		PongTimeout:    cfg.Relay.PongTimeout,
		WriteTimeout:   cfg.Relay.WriteTimeout,
		ReadLimit:      cfg.Relay.ReadLimit,
		LoggerFactory:  loggerFactory,
	})

	// Step 7: Start HTTP server
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErr <- err
		}
	}()

	log.Printf("Relay started on %s", cfg.Relay.Addr)
	log.Printf("Browser endpoints: %s %s, device endpoints: %s %s",
		relay.PathControl, relay.PathDistance, relay.PathPiControl, relay.PathPiDistance)

	// Set up graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		log.Printf("Server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Relay.ShutdownGrace)
	defer cancel()

	// Stop HTTP server and close every peer
	if err := server.Stop(ctx); err != nil {
		log.Printf("Error stopping relay server: %v", err)
	} else {
		log.Println("Relay server stopped gracefully")
	}

	if auditLogger != nil {
		if err := auditLogger.Close(); err != nil {
			log.Printf("Error closing audit logger: %v", err)
		}
		log.Println("Audit logger closed")
	}

	log.Println("Relay shutdown complete")
}
