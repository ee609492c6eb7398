package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smartdo/internal/models"
	"smartdo/internal/smart"
)

// handleQuickAdd turns a free-text message into either a one-off todo or a
// repeating task, using the AI parser.
func (h *Handlers) handleQuickAdd(ctx context.Context, msg *tgbotapi.Message) {
	if h.ai == nil {
		h.sendMessage(msg.Chat.ID, "Natural language input is not configured, use /add or see /help")
		return
	}

	parsed, err := h.ai.ParseQuickAdd(ctx, msg.Text)
	if err != nil {
		log.Printf("Failed to parse quick add: %v", err)
		h.sendMessage(msg.Chat.ID, "Sorry, I couldn't make sense of that. Try /add")
		return
	}
	if parsed.Title == "" {
		h.sendMessage(msg.Chat.ID, "Sorry, I couldn't find a task in that. Try /add")
		return
	}

	date := models.DateOnly(time.Now())
	if d, err := time.Parse(models.DateFormat, parsed.Date); err == nil {
		date = d
	}
	var timeOfDay *string
	if timeOfDayRe.MatchString(parsed.Time) {
		t := normalizeTimeOfDay(parsed.Time)
		timeOfDay = &t
	}

	if parsed.RepeatCount > 0 {
		unit := models.RepeatUnit(parsed.RepeatUnit)
		if !unit.Valid() {
			h.sendMessage(msg.Chat.ID, "Sorry, I couldn't work out the repeat cadence. Try /repeat")
			return
		}
		rule := &models.RecurringTodo{
			Title:       parsed.Title,
			StartDate:   date,
			Time:        timeOfDay,
			RepeatCount: parsed.RepeatCount,
			RepeatUnit:  unit,
			IsActive:    true,
		}
		if err := h.createRule(ctx, rule); err != nil {
			log.Printf("Failed to create rule from quick add: %v", err)
			h.sendMessage(msg.Chat.ID, "Failed to create the repeating task, try again")
			return
		}
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Repeating task \"%s\": %s, starting %s",
			rule.Title, describeRule(rule), date.Format(models.DateFormat)))
		return
	}

	todo, err := h.svc.Add(ctx, smart.AddParams{
		Title: parsed.Title,
		Date:  date,
		Time:  timeOfDay,
	})
	if err != nil {
		log.Printf("Failed to add todo from quick add: %v", err)
		h.sendMessage(msg.Chat.ID, "Failed to add, try again")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("Added \"%s\" on %s", todo.Title, todo.Date.Format(models.DateFormat)))
}
