package handlers

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smartdo/internal/cache"
	"smartdo/internal/models"
	"smartdo/internal/smart"
)

var timeOfDayRe = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// normalizeTimeOfDay pads a single-digit hour so stored times are always
// HH:MM and compare correctly as strings ("9:30" -> "09:30").
func normalizeTimeOfDay(s string) string {
	if strings.IndexByte(s, ':') == 1 {
		return "0" + s
	}
	return s
}

func (h *Handlers) handleToday(ctx context.Context, msg *tgbotapi.Message) {
	h.listDay(ctx, msg.Chat.ID, time.Now())
}

func (h *Handlers) handleDay(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	day, err := time.Parse(models.DateFormat, arg)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Usage: /day YYYY-MM-DD")
		return
	}
	h.listDay(ctx, msg.Chat.ID, day)
}

func (h *Handlers) listDay(ctx context.Context, chatID int64, day time.Time) {
	b := cache.BucketFor(day)
	window, err := h.svc.Window(ctx, b)
	if err != nil {
		log.Printf("Failed to fetch window %s: %v", b.Key(), err)
		h.sendMessage(chatID, "Failed to load todos, try again")
		return
	}
	go h.svc.PrefetchAdjacent(context.WithoutCancel(ctx), b)

	var todays []models.SmartTodo
	for _, t := range window {
		if models.SameDay(t.GetDate(), day) {
			todays = append(todays, t)
		}
	}
	h.rememberListing(chatID, todays)

	heading := day.Format("Mon, Jan 2")
	if len(todays) == 0 {
		h.sendMessage(chatID, heading+"\n\nNothing planned.")
		return
	}
	h.sendMessage(chatID, heading+"\n\n"+formatListing(todays, false))
}

func (h *Handlers) handleMonth(ctx context.Context, msg *tgbotapi.Message) {
	b := cache.BucketFor(time.Now())
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		month, err := time.Parse("2006-01", arg)
		if err != nil {
			h.sendMessage(msg.Chat.ID, "Usage: /month YYYY-MM")
			return
		}
		b = cache.BucketFor(month)
	}

	window, err := h.svc.Window(ctx, b)
	if err != nil {
		log.Printf("Failed to fetch window %s: %v", b.Key(), err)
		h.sendMessage(msg.Chat.ID, "Failed to load todos, try again")
		return
	}
	go h.svc.PrefetchAdjacent(context.WithoutCancel(ctx), b)

	h.rememberListing(msg.Chat.ID, window)

	start, _ := b.Range()
	heading := start.Format("January 2006")
	if len(window) == 0 {
		h.sendMessage(msg.Chat.ID, heading+"\n\nNothing planned.")
		return
	}
	h.sendMessage(msg.Chat.ID, heading+"\n\n"+formatListing(window, true))
}

func formatListing(todos []models.SmartTodo, withDates bool) string {
	var b strings.Builder
	for i, t := range todos {
		mark := "[ ]"
		if t.GetDone() {
			mark = "[x]"
		}
		fmt.Fprintf(&b, "%d. %s ", i+1, mark)
		if withDates {
			b.WriteString(t.GetDate().Format("Jan 2") + " ")
		}
		b.WriteString(t.GetTitle())
		if tm := t.GetTime(); tm != nil && *tm != "" {
			b.WriteString(" @ " + *tm)
		}
		if t.IsVirtual() {
			b.WriteString(" (recurring)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (h *Handlers) handleAdd(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		h.sendMessage(msg.Chat.ID, "Usage: /add <title> [YYYY-MM-DD] [HH:MM]")
		return
	}

	params := smart.AddParams{Date: time.Now()}
	var titleWords []string
	for _, arg := range args {
		if day, err := time.Parse(models.DateFormat, arg); err == nil {
			params.Date = day
			continue
		}
		if timeOfDayRe.MatchString(arg) {
			t := normalizeTimeOfDay(arg)
			params.Time = &t
			continue
		}
		titleWords = append(titleWords, arg)
	}
	params.Title = strings.Join(titleWords, " ")
	if params.Title == "" {
		h.sendMessage(msg.Chat.ID, "Usage: /add <title> [YYYY-MM-DD] [HH:MM]")
		return
	}

	todo, err := h.svc.Add(ctx, params)
	if err != nil {
		log.Printf("Failed to add todo: %v", err)
		h.sendMessage(msg.Chat.ID, "Failed to add, try again")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("Added \"%s\" on %s", todo.Title, todo.Date.Format(models.DateFormat)))
}

func (h *Handlers) handleRepeat(ctx context.Context, msg *tgbotapi.Message) {
	usage := "Usage: /repeat <n> <day|week|month> <title> [YYYY-MM-DD]"
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 3 {
		h.sendMessage(msg.Chat.ID, usage)
		return
	}

	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		h.sendMessage(msg.Chat.ID, usage)
		return
	}
	unit := models.RepeatUnit(args[1])
	if !unit.Valid() {
		h.sendMessage(msg.Chat.ID, usage)
		return
	}

	start := models.DateOnly(time.Now())
	titleArgs := args[2:]
	if last := titleArgs[len(titleArgs)-1]; len(titleArgs) > 1 {
		if day, err := time.Parse(models.DateFormat, last); err == nil {
			start = day
			titleArgs = titleArgs[:len(titleArgs)-1]
		}
	}

	rule := &models.RecurringTodo{
		Title:       strings.Join(titleArgs, " "),
		StartDate:   start,
		RepeatCount: count,
		RepeatUnit:  unit,
		IsActive:    true,
	}
	if err := h.createRule(ctx, rule); err != nil {
		log.Printf("Failed to create rule: %v", err)
		h.sendMessage(msg.Chat.ID, "Failed to create the repeating task, try again")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("Repeating task \"%s\": %s, starting %s",
		rule.Title, describeRule(rule), start.Format(models.DateFormat)))
}

func (h *Handlers) createRule(ctx context.Context, rule *models.RecurringTodo) error {
	if err := h.rules.Create(ctx, rule); err != nil {
		return err
	}
	// The change notification does this too, but invalidating here makes
	// the new occurrences visible on the next command without waiting.
	h.svc.InvalidateVirtual()
	return nil
}

func (h *Handlers) handleDone(ctx context.Context, msg *tgbotapi.Message) {
	index, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Usage: /done <number> (from the last listing)")
		return
	}
	todo, ok := h.listedTodo(msg.Chat.ID, index)
	if !ok {
		h.sendMessage(msg.Chat.ID, "No such item, list todos first")
		return
	}

	toggled, err := h.svc.Toggle(ctx, todo)
	if err != nil {
		log.Printf("Failed to toggle todo %s: %v", todo.GetID(), err)
		h.sendMessage(msg.Chat.ID, "Failed to update, try again")
		return
	}

	state := "open again"
	if toggled.GetDone() {
		state = "done"
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("\"%s\" is %s", toggled.GetTitle(), state))
}

func (h *Handlers) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	index, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Usage: /del <number> (from the last listing)")
		return
	}
	todo, ok := h.listedTodo(msg.Chat.ID, index)
	if !ok {
		h.sendMessage(msg.Chat.ID, "No such item, list todos first")
		return
	}

	if err := h.svc.Delete(ctx, todo); err != nil {
		log.Printf("Failed to delete todo %s: %v", todo.GetID(), err)
		h.sendMessage(msg.Chat.ID, "Failed to delete, try again")
		return
	}

	if todo.IsVirtual() {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf(
			"Hidden \"%s\" for now. Use /stoprule to stop the repeating task for good.", todo.GetTitle()))
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("Deleted \"%s\"", todo.GetTitle()))
}
