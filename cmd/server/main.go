// Package main is the entry point for the family battle service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"family-battle/internal/battle/reward"
	"family-battle/internal/battle/week"
	"family-battle/internal/config"
	"family-battle/internal/handler"
	"family-battle/internal/pkg/db"
	"family-battle/internal/repository"
	"family-battle/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	epoch, loc, err := cfg.Battle.EpochDate()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid battle week configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	battleRepo := repository.NewBattleRepository(dbPool.Pool)
	historyRepo := repository.NewHistoryRepository(dbPool.Pool)
	memberRepo := repository.NewMemberRepository(dbPool.Pool)
	sessionRepo := repository.NewSessionRepository(dbPool.Pool)
	awardRepo := repository.NewAwardRepository(dbPool.Pool)

	// Initialize battle machinery
	clock := week.New(epoch, loc)
	rewards := reward.New(&reward.Config{
		BaseXP:   cfg.Rewards.BaseXP,
		MVPBonus: cfg.Rewards.MVPBonus,
	})
	rolloverEngine := repository.NewRolloverEngine(dbPool.Pool, rewards)
	aggregator := service.NewAggregator(memberRepo, sessionRepo)

	syncService := service.NewSync(
		battleRepo,
		historyRepo,
		memberRepo,
		sessionRepo,
		awardRepo,
		rolloverEngine,
		aggregator,
		clock,
	)

	log.Info().
		Str("epoch", cfg.Battle.Epoch).
		Str("timezone", cfg.Battle.Timezone).
		Int("current_week", syncService.CurrentWeek().Number).
		Msg("Battle clock initialized")

	// Start background poller
	if cfg.Poller.Enabled {
		poller := service.NewPoller(syncService, battleRepo, cfg.Poller.Interval)
		go poller.Run(ctx)
	}

	// Initialize HTTP server
	h := handler.New(syncService, dbPool)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create battle_records table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS battle_records (
			family_id TEXT PRIMARY KEY,
			week_number INT NOT NULL,
			week_start DATE NOT NULL,
			children_total BIGINT NOT NULL DEFAULT 0,
			parents_total BIGINT NOT NULL DEFAULT 0,
			children_breakdown JSONB NOT NULL DEFAULT '{}'::jsonb,
			parents_breakdown JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: battle_records table created")

	// Migration 2: Create battle_history table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS battle_history (
			family_id TEXT PRIMARY KEY,
			total_battles INT NOT NULL DEFAULT 0,
			children_wins INT NOT NULL DEFAULT 0,
			parent_wins INT NOT NULL DEFAULT 0,
			streak_team TEXT NOT NULL DEFAULT '',
			streak_count INT NOT NULL DEFAULT 0,
			recent_results JSONB NOT NULL DEFAULT '[]'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: battle_history table created")

	// Migration 3: Create battle_members table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS battle_members (
			family_id TEXT NOT NULL,
			member_id TEXT NOT NULL,
			role VARCHAR(10) NOT NULL,
			display_name TEXT NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (family_id, member_id)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: battle_members table created")

	// Migration 4: Create reading_sessions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS reading_sessions (
			member_id TEXT NOT NULL,
			session_date DATE NOT NULL,
			minutes BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (member_id, session_date)
		);
		CREATE INDEX IF NOT EXISTS idx_reading_sessions_member_date ON reading_sessions(member_id, session_date);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: reading_sessions table created")

	// Migration 5: Create xp_awards table
	// The primary key makes XP awards exactly-once per member per week.
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS xp_awards (
			family_id TEXT NOT NULL,
			member_id TEXT NOT NULL,
			week_number INT NOT NULL,
			amount BIGINT NOT NULL,
			mvp BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (family_id, member_id, week_number)
		);
		CREATE INDEX IF NOT EXISTS idx_xp_awards_family_week ON xp_awards(family_id, week_number DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: xp_awards table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
