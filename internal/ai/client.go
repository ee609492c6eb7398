package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *Client) SetModel(model string) {
	c.model = model
}

// QuickAdd is the parsed form of a free-text entry. RepeatCount > 0 means
// the user asked for a recurring task; otherwise it is a one-off on Date.
type QuickAdd struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	RepeatCount int    `json:"repeat_count"`
	RepeatUnit  string `json:"repeat_unit"`
	RawResponse string `json:"-"`
}

const systemPromptTemplate = `You parse a user's free-text todo entry into a structured task.

Current time: %s

Rules:
1. title: the task text with all date/time/repeat phrasing stripped.
2. date: the target day in YYYY-MM-DD. Resolve relative phrases
   ("tomorrow", "next monday") against the current time. Default to today.
3. time: HH:MM in 24-hour form if the user named a time of day, otherwise
   an empty string.
4. Recurrence: phrases like "every day", "every 2 weeks", "monthly" set
   repeat_count (the stride, at least 1) and repeat_unit (one of "day",
   "week", "month"). For a one-off task set repeat_count to 0 and
   repeat_unit to "". "every other day" means repeat_count 2, unit "day".
5. For a recurring task, date is the first occurrence.`

func getSystemPrompt() string {
	now := time.Now()
	return fmt.Sprintf(systemPromptTemplate, now.Format("2006-01-02 15:04 (Monday)"))
}

// JSON Schema for structured output
var quickAddSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"title": {
			"type": "string",
			"description": "Task text without date/time/repeat phrasing"
		},
		"date": {
			"type": "string",
			"description": "Target day in YYYY-MM-DD"
		},
		"time": {
			"type": "string",
			"description": "Time of day in HH:MM, or empty string"
		},
		"repeat_count": {
			"type": "integer",
			"minimum": 0,
			"description": "Repeat stride, 0 for a one-off task"
		},
		"repeat_unit": {
			"type": "string",
			"enum": ["day", "week", "month", ""],
			"description": "Repeat unit, empty for a one-off task"
		}
	},
	"required": ["title", "date", "time", "repeat_count", "repeat_unit"],
	"additionalProperties": false
}`)

func (c *Client) ParseQuickAdd(ctx context.Context, userMessage string) (*QuickAdd, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: getSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userMessage,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "quick_add",
				Schema: quickAddSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	content := resp.Choices[0].Message.Content
	parsed := &QuickAdd{RawResponse: content}

	if err := json.Unmarshal([]byte(content), parsed); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	return parsed, nil
}
