package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smartdo/internal/cache"
	"smartdo/internal/models"
	"smartdo/internal/smart"
	syncpkg "smartdo/internal/sync"
)

type Scheduler struct {
	api           *tgbotapi.BotAPI
	svc           *smart.Service
	coord         *syncpkg.Coordinator
	chatID        int64
	agendaHour    int
	checkInterval time.Duration
	notifyCh      chan struct{}

	lastAgendaDate string
	statsTicks     int
}

func New(api *tgbotapi.BotAPI, svc *smart.Service, coord *syncpkg.Coordinator, chatID int64, agendaHour int) *Scheduler {
	return &Scheduler{
		api:           api,
		svc:           svc,
		coord:         coord,
		chatID:        chatID,
		agendaHour:    agendaHour,
		checkInterval: 1 * time.Minute,
		notifyCh:      make(chan struct{}, 1),
	}
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// Channel already has a pending notification, skip
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	log.Println("Scheduler started")
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Wait a bit for migrations to complete before first check
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
	}

	s.check(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return
		case <-ticker.C:
			s.check(ctx)
		case <-s.notifyCh:
			log.Println("Scheduler triggered by notification")
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	s.coord.RetryPending(ctx)
	s.checkDailyAgenda(ctx)

	// Roughly hourly at the default interval.
	s.statsTicks++
	if s.statsTicks%60 == 0 {
		hits, misses, size := s.svc.CacheStats()
		log.Printf("Virtual cache: %d hits, %d misses, %d windows cached", hits, misses, size)
	}
}

func (s *Scheduler) checkDailyAgenda(ctx context.Context) {
	if s.chatID == 0 {
		return
	}

	now := time.Now()
	today := now.Format(models.DateFormat)
	if now.Hour() < s.agendaHour || s.lastAgendaDate == today {
		return
	}

	window, err := s.svc.Window(ctx, cache.BucketFor(now))
	if err != nil {
		log.Printf("Failed to build agenda window: %v", err)
		return
	}

	var todays []models.SmartTodo
	for _, t := range window {
		if models.SameDay(t.GetDate(), now) {
			todays = append(todays, t)
		}
	}

	msg := tgbotapi.NewMessage(s.chatID, buildAgendaText(todays, now))
	if _, err := s.api.Send(msg); err != nil {
		log.Printf("Failed to send daily agenda: %v", err)
		return
	}

	s.lastAgendaDate = today
	log.Printf("Sent daily agenda with %d items", len(todays))
}

func buildAgendaText(todos []models.SmartTodo, now time.Time) string {
	text := fmt.Sprintf("Good morning! Agenda for %s\n\n", now.Format("Mon, Jan 2"))
	if len(todos) == 0 {
		return text + "Nothing planned today."
	}

	for i, t := range todos {
		mark := "[ ]"
		if t.GetDone() {
			mark = "[x]"
		}
		line := fmt.Sprintf("%d. %s %s", i+1, mark, t.GetTitle())
		if tm := t.GetTime(); tm != nil && *tm != "" {
			line += " @ " + *tm
		}
		if t.IsVirtual() {
			line += " (recurring)"
		}
		text += line + "\n"
	}
	return text
}
