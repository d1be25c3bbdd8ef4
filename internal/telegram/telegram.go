package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"masterpay/internal/models"
)

// Client - клиент Telegram Bot API. Запросы идут через tgbotapi, но
// сборка параметров и разбор обновлений свои: боту нужны темы форумов
// (message_thread_id), которых нет в типизированных конфигах tgbotapi.
type Client struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewClient(token string, logger *zap.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("создание telegram-клиента: %w", err)
	}

	logger.Info("telegram-клиент авторизован", zap.String("bot", bot.Self.UserName))
	return &Client{
		bot:    bot,
		logger: logger,
	}, nil
}

// SendMessage отправляет обычное текстовое сообщение и возвращает его ID.
func (t *Client) SendMessage(chatID int64, threadID int, text string) (int, error) {
	return t.send(chatID, threadID, text, "", nil)
}

// SendMarkdownMessage отправляет сообщение с разметкой Markdown.
func (t *Client) SendMarkdownMessage(chatID int64, threadID int, text string) (int, error) {
	return t.send(chatID, threadID, text, "Markdown", nil)
}

// SendMessageWithInlineKeyboard отправляет сообщение с инлайн-кнопками.
func (t *Client) SendMessageWithInlineKeyboard(chatID int64, threadID int, text string, markdown bool, buttons [][]models.Button) (int, error) {
	parseMode := ""
	if markdown {
		parseMode = "Markdown"
	}
	return t.send(chatID, threadID, text, parseMode, buttons)
}

func (t *Client) send(chatID int64, threadID int, text, parseMode string, buttons [][]models.Button) (int, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_thread_id", threadID)
	params.AddNonEmpty("text", text)
	params.AddNonEmpty("parse_mode", parseMode)
	if len(buttons) > 0 {
		if err := params.AddInterface("reply_markup", inlineKeyboard(buttons)); err != nil {
			return 0, err
		}
	}

	resp, err := t.bot.MakeRequest("sendMessage", params)
	if err != nil {
		return 0, err
	}

	var sent struct {
		MessageID int `json:"message_id"`
	}
	if err := json.Unmarshal(resp.Result, &sent); err != nil {
		return 0, fmt.Errorf("разбор ответа sendMessage: %w", err)
	}
	return sent.MessageID, nil
}

// EditMessageText заменяет текст ранее отправленного сообщения.
func (t *Client) EditMessageText(chatID int64, messageID int, text string, markdown bool) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_id", messageID)
	params.AddNonEmpty("text", text)
	if markdown {
		params.AddNonEmpty("parse_mode", "Markdown")
	}

	_, err := t.bot.MakeRequest("editMessageText", params)
	return err
}

// DeleteMessage удаляет сообщение. Ошибки удаления не фатальны:
// отсутствие прав логируется, остальное (сообщение уже удалено,
// слишком старое) молча игнорируется.
func (t *Client) DeleteMessage(chatID int64, messageID int) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_id", messageID)

	_, err := t.bot.MakeRequest("deleteMessage", params)
	if err == nil {
		return
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 403 {
		t.logger.Warn("нет прав для удаления сообщения",
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
		)
	}
}

// AnswerCallback отвечает на callback-запрос, убирая индикатор
// загрузки у кнопки.
func (t *Client) AnswerCallback(callbackID, text string) error {
	params := tgbotapi.Params{}
	params.AddNonEmpty("callback_query_id", callbackID)
	params.AddNonEmpty("text", text)

	_, err := t.bot.MakeRequest("answerCallbackQuery", params)
	return err
}

// Схема обновлений getUpdates: разбираем сами, чтобы не терять
// message_thread_id.
type update struct {
	UpdateID      int               `json:"update_id"`
	Message       *incomingMessage  `json:"message"`
	CallbackQuery *incomingCallback `json:"callback_query"`
}

type incomingUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type incomingMessage struct {
	MessageID       int           `json:"message_id"`
	MessageThreadID int           `json:"message_thread_id"`
	From            *incomingUser `json:"from"`
	Chat            struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

type incomingCallback struct {
	ID      string           `json:"id"`
	Data    string           `json:"data"`
	Message *incomingMessage `json:"message"`
}

// StartBot запускает long polling и возвращает каналы входящих
// сообщений и callback-запросов. Оба канала закрываются при отмене
// контекста.
func (t *Client) StartBot(ctx context.Context) (<-chan models.Message, <-chan models.CallbackQuery, error) {
	// Удаляем вебхук перед запуском long polling
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return nil, nil, fmt.Errorf("удаление вебхука: %w", err)
	}

	messages := make(chan models.Message)
	callbacks := make(chan models.CallbackQuery)

	go func() {
		defer close(messages)
		defer close(callbacks)

		offset := 0
		for {
			if ctx.Err() != nil {
				return
			}

			updates, err := t.getUpdates(offset)
			if err != nil {
				t.logger.Error("ошибка получения обновлений", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(3 * time.Second):
				}
				continue
			}

			for _, upd := range updates {
				if upd.UpdateID >= offset {
					offset = upd.UpdateID + 1
				}
				t.dispatch(ctx, upd, messages, callbacks)
			}
		}
	}()

	return messages, callbacks, nil
}

func (t *Client) getUpdates(offset int) ([]update, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", 60)

	resp, err := t.bot.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("разбор обновлений: %w", err)
	}
	return updates, nil
}

func (t *Client) dispatch(ctx context.Context, upd update, messages chan<- models.Message, callbacks chan<- models.CallbackQuery) {
	if upd.Message != nil && upd.Message.From != nil {
		msg := models.Message{
			ChatID:          upd.Message.Chat.ID,
			MessageThreadID: upd.Message.MessageThreadID,
			MessageID:       upd.Message.MessageID,
			Text:            upd.Message.Text,
			FullName:        fullName(upd.Message.From),
		}
		select {
		case messages <- msg:
		case <-ctx.Done():
			return
		}
	}

	if upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil {
		cb := models.CallbackQuery{
			ID:              upd.CallbackQuery.ID,
			ChatID:          upd.CallbackQuery.Message.Chat.ID,
			MessageThreadID: upd.CallbackQuery.Message.MessageThreadID,
			MessageID:       upd.CallbackQuery.Message.MessageID,
			Data:            upd.CallbackQuery.Data,
		}
		select {
		case callbacks <- cb:
		case <-ctx.Done():
			return
		}
	}
}

func fullName(u *incomingUser) string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

func inlineKeyboard(buttons [][]models.Button) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
