package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smartdo/internal/models"
	"smartdo/internal/rrule"
)

func describeRule(rule *models.RecurringTodo) string {
	return rrule.Describe(rule)
}

func (h *Handlers) handleRules(ctx context.Context, msg *tgbotapi.Message) {
	rules, err := h.rules.All(ctx)
	if err != nil {
		log.Printf("Failed to list rules: %v", err)
		h.sendMessage(msg.Chat.ID, "Failed to load repeating tasks, try again")
		return
	}

	h.mu.Lock()
	h.lastRules[msg.Chat.ID] = rules
	h.mu.Unlock()

	if len(rules) == 0 {
		h.sendMessage(msg.Chat.ID, "No repeating tasks. Create one with /repeat")
		return
	}

	var b strings.Builder
	b.WriteString("Repeating tasks\n\n")
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. %s - %s, since %s\n",
			i+1, rule.Title, describeRule(rule), rule.StartDate.Format(models.DateFormat))
		if next, err := rrule.NextAfter(rule, time.Now()); err == nil && next != nil {
			b.WriteString("   next " + next.Format(models.DateFormat) + "\n")
		}
		if export, err := rrule.Export(rule); err == nil {
			b.WriteString("   " + export + "\n")
		}
	}
	b.WriteString("\nStop one with /stoprule <number>")
	h.sendMessage(msg.Chat.ID, b.String())
}

func (h *Handlers) handleStopRule(ctx context.Context, msg *tgbotapi.Message) {
	index, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Usage: /stoprule <number> (from /rules)")
		return
	}

	h.mu.Lock()
	rules := h.lastRules[msg.Chat.ID]
	h.mu.Unlock()
	if index < 1 || index > len(rules) {
		h.sendMessage(msg.Chat.ID, "No such rule, run /rules first")
		return
	}
	rule := rules[index-1]

	if !rule.IsActive {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("\"%s\" is already stopped", rule.Title))
		return
	}

	if err := h.rules.Deactivate(ctx, rule.ID); err != nil {
		log.Printf("Failed to deactivate rule %s: %v", rule.ID, err)
		h.sendMessage(msg.Chat.ID, "Failed to stop the repeating task, try again")
		return
	}
	h.svc.InvalidateVirtual()

	h.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"Stopped \"%s\". Already completed occurrences are kept.", rule.Title))
}
