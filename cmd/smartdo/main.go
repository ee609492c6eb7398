package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartdo/internal/ai"
	"smartdo/internal/bot"
	"smartdo/internal/cache"
	"smartdo/internal/config"
	"smartdo/internal/database"
	"smartdo/internal/materialize"
	"smartdo/internal/models"
	"smartdo/internal/realtime"
	"smartdo/internal/repository"
	"smartdo/internal/scheduler"
	"smartdo/internal/smart"
	syncpkg "smartdo/internal/sync"
	"smartdo/internal/virtual"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DatabaseURI == "" {
		log.Fatal("DATABASE_URI is required")
	}
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	todoRepo := repository.NewTodoRepository(db)
	recurringRepo := repository.NewRecurringRepository(db)

	buckets := cache.NewStore[[]*models.Todo]()
	vcache := virtual.NewCache(virtual.DefaultCapacity)
	svc := smart.NewService(todoRepo, recurringRepo, materialize.New(todoRepo), buckets, vcache)
	coord := syncpkg.NewCoordinator(svc, svc, buckets)

	var aiClient *ai.Client
	if cfg.AIAPIKey != "" {
		aiClient = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		log.Printf("AI client initialized (model: %s)", cfg.AIModel)
	} else {
		log.Println("AI client not configured, natural language input disabled")
	}

	b, err := bot.New(cfg.TelegramToken, svc, recurringRepo, aiClient)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	sched := scheduler.New(b.API(), svc, coord, cfg.TelegramChatID, cfg.AgendaHour)
	go sched.Start(ctx)

	listener := realtime.New(db)
	go listener.Start(ctx)
	go dispatchEvents(ctx, listener, coord, sched)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	log.Println("Starting bot...")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Bot error: %v", err)
	}
}

// dispatchEvents feeds store change notifications into cache invalidation.
func dispatchEvents(ctx context.Context, listener *realtime.Listener, coord *syncpkg.Coordinator, sched *scheduler.Scheduler) {
	for ev := range listener.Events() {
		switch ev.Channel {
		case realtime.RecurringChannel:
			change := syncpkg.RuleChange{
				StartDate:   time.Now(),
				RepeatCount: ev.RepeatCount,
				RepeatUnit:  ev.RepeatUnit,
			}
			if ev.StartDate != nil {
				change.StartDate = *ev.StartDate
			}
			coord.RuleChanged(ctx, change)
		case realtime.TodoChannel:
			coord.TaskChanged(syncpkg.TaskChange{Date: ev.Date})
		}
		sched.Notify()
	}
}
