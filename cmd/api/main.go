package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velstore/posgo/internal/config"
	"github.com/velstore/posgo/internal/database"
	"github.com/velstore/posgo/internal/device"
	"github.com/velstore/posgo/internal/handlers"
	"github.com/velstore/posgo/internal/models"
	"github.com/velstore/posgo/internal/remote"
	"github.com/velstore/posgo/internal/services/receipt"
	"github.com/velstore/posgo/internal/store"
	syncpkg "github.com/velstore/posgo/internal/sync"
	ws "github.com/velstore/posgo/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema (Critical for Zero-Config)
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		// Business entities
		&models.Product{},
		&models.Customer{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},

		// Sync tables
		&models.SyncOperation{},
		&models.SyncCheckpoint{},
		&models.SyncConflict{},
		&models.OfflineSession{},

		// Device registry
		&models.DeviceRecord{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Device identity (stable across restarts)
	descriptor, err := device.LoadOrGenerate(cfg.Device.DataDir, cfg.Device.Platform, cfg.Device.AppVersion)
	if err != nil {
		log.Fatalf("Failed to establish device identity: %v", err)
	}
	if err := device.Touch(db, descriptor, cfg.TenantID, false); err != nil {
		log.Printf("⚠️ Device registration warning: %v", err)
	}
	log.Printf("📱 Device: %s (%s)", descriptor.Name, descriptor.DeviceID)

	// 5. Sync subsystem wiring
	log.Println("🔄 Initializing Sync Engine...")
	syncCfg := cfg.Sync

	remoteClient := remote.NewHTTPClient(cfg.Remote)
	probe := syncpkg.NewRemoteProbe(remoteClient)

	localStore := store.New(db)
	queue := syncpkg.NewQueue(db)
	registry := syncpkg.DefaultRegistry(localStore, remoteClient)
	resolver := syncpkg.NewConflictResolver(db, queue,
		syncpkg.ConflictStrategy(syncCfg.ConflictResolution), syncCfg.ConflictWindow())

	engine := syncpkg.NewEngine(db, syncCfg, queue, registry, resolver, probe, descriptor.DeviceID)

	// 6. Websocket hub: push cycle results to connected terminals
	hub := ws.NewHub()
	go hub.Run()

	engine.SetNotifier(func(result *syncpkg.CycleResult) {
		hub.Broadcast(map[string]interface{}{
			"type":   "sync_result",
			"result": result,
		})
	})

	ctx, cancelScheduler := context.WithCancel(context.Background())

	scheduler := syncpkg.NewScheduler(engine, probe, cfg.TenantID, syncCfg.SyncInterval())
	if syncCfg.Enabled && syncCfg.AutoSyncEnabled {
		scheduler.Start(ctx)
		log.Printf("⏱️ Sync scheduler started (every %s)", syncCfg.SyncInterval())
	}

	if syncCfg.Enabled && syncCfg.SyncOnStartup {
		go func() {
			if _, err := engine.SyncCycle(ctx, cfg.TenantID); err != nil &&
				!errors.Is(err, syncpkg.ErrDeviceOffline) && !errors.Is(err, syncpkg.ErrSyncInProgress) {
				log.Printf("⚠️ Startup sync failed: %v", err)
			}
		}()
	}

	// 7. HTTP router
	syncHandler := handlers.NewSyncHandler(engine, queue, probe, cfg.TenantID, descriptor.DeviceID)
	receiptHandler := handlers.NewReceiptHandler(localStore, receipt.DefaultConfig(), cfg.TenantID)
	router := handlers.NewRouter(db, hub, syncHandler, receiptHandler)

	// 8. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 POS terminal server starting on port %s [tenant: %s]\n", cfg.Port, cfg.TenantID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stop the scheduler and wait for any in-flight cycle to park
	scheduler.Stop()
	cancelScheduler()

	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
