package handlers

import (
	"context"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smartdo/internal/ai"
	"smartdo/internal/models"
	"smartdo/internal/repository"
	"smartdo/internal/smart"
)

type Handlers struct {
	api   *tgbotapi.BotAPI
	svc   *smart.Service
	rules *repository.RecurringRepository
	ai    *ai.Client

	// Numbered selection state per chat: /done 2 and /del 2 refer to the
	// most recent listing, /stoprule 2 to the most recent /rules output.
	mu          sync.Mutex
	lastListing map[int64][]models.SmartTodo
	lastRules   map[int64][]*models.RecurringTodo
}

func New(api *tgbotapi.BotAPI, svc *smart.Service, rules *repository.RecurringRepository, aiClient *ai.Client) *Handlers {
	return &Handlers{
		api:         api,
		svc:         svc,
		rules:       rules,
		ai:          aiClient,
		lastListing: make(map[int64][]models.SmartTodo),
		lastRules:   make(map[int64][]*models.RecurringTodo),
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		h.handleHelp(msg)
	case "today":
		h.handleToday(ctx, msg)
	case "day":
		h.handleDay(ctx, msg)
	case "month":
		h.handleMonth(ctx, msg)
	case "add":
		h.handleAdd(ctx, msg)
	case "repeat":
		h.handleRepeat(ctx, msg)
	case "done":
		h.handleDone(ctx, msg)
	case "del":
		h.handleDelete(ctx, msg)
	case "rules":
		h.handleRules(ctx, msg)
	case "stoprule":
		h.handleStopRule(ctx, msg)
	default:
		h.sendMessage(msg.Chat.ID, "Unknown command, see /help")
	}
}

func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.handleQuickAdd(ctx, msg)
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (h *Handlers) rememberListing(chatID int64, todos []models.SmartTodo) {
	h.mu.Lock()
	h.lastListing[chatID] = todos
	h.mu.Unlock()
}

func (h *Handlers) listedTodo(chatID int64, index int) (models.SmartTodo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	listing := h.lastListing[chatID]
	if index < 1 || index > len(listing) {
		return nil, false
	}
	return listing[index-1], true
}

func (h *Handlers) handleHelp(msg *tgbotapi.Message) {
	text := `Commands

/today - today's todos
/day <YYYY-MM-DD> - todos for a day
/month [YYYY-MM] - todos for a month
/add <title> [YYYY-MM-DD] [HH:MM] - add a one-off todo
/repeat <n> <day|week|month> <title> - add a repeating task
/done <number> - toggle an item from the last listing
/del <number> - delete an item from the last listing
/rules - list repeating tasks
/stoprule <number> - stop a repeating task

You can also just type what you need, e.g.
"water the plants every 3 days" or "dentist friday 14:30".`
	h.sendMessage(msg.Chat.ID, text)
}
