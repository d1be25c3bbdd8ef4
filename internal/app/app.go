package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"masterpay/internal/bot"
	"masterpay/internal/config"
	"masterpay/internal/ledger"
	"masterpay/internal/logger"
	"masterpay/internal/practice"
	"masterpay/internal/practicebot"
	"masterpay/internal/sale"
	"masterpay/internal/telegram"
)

// RunSaleBot собирает и запускает бота расчёта продаж.
func RunSaleBot(configPath string) error {
	cfg, log, err := bootstrap(configPath)
	if err != nil {
		return err
	}

	if cfg.Telegram.Token == "" {
		return errors.New("не задан токен бота (telegram.token или BOT_TOKEN)")
	}

	checkPeriod, err := cfg.Reminders.Period()
	if err != nil {
		return err
	}

	tgClient, err := telegram.NewClient(cfg.Telegram.Token, log)
	if err != nil {
		log.Error("ошибка создания telegram-клиента", zap.Error(err))
		return err
	}

	paymentLedger := ledger.NewRepository(cfg.Storage.PaymentsFile, log)

	flow := sale.NewFlow(sale.NewStore(), log)

	reminderService := bot.NewReminderService(paymentLedger, tgClient, log, checkPeriod)
	reminderService.Start()
	defer reminderService.Stop()

	botService := bot.NewService(tgClient, paymentLedger, flow, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := botService.Start(ctx); err != nil {
		log.Error("ошибка запуска бота", zap.Error(err))
		return err
	}
	return nil
}

// RunPracticeBot собирает и запускает бота сопровождения практик.
func RunPracticeBot(configPath string) error {
	cfg, log, err := bootstrap(configPath)
	if err != nil {
		return err
	}

	if cfg.Telegram.PracticeToken == "" {
		return errors.New("не задан токен бота (telegram.practice_token или PRACTICE_BOT_TOKEN)")
	}

	tgClient, err := telegram.NewClient(cfg.Telegram.PracticeToken, log)
	if err != nil {
		log.Error("ошибка создания telegram-клиента", zap.Error(err))
		return err
	}

	clientStore := practice.NewStore(cfg.Storage.ClientsFile, log)

	scheduler := practice.NewScheduler(func(chatID int64, text string) {
		if _, err := tgClient.SendMarkdownMessage(chatID, 0, text); err != nil {
			log.Error("ошибка при отправке напоминания",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
			)
		}
	}, log)

	botService := practicebot.NewService(tgClient, clientStore, scheduler, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := botService.Start(ctx); err != nil {
		log.Error("ошибка запуска бота", zap.Error(err))
		return err
	}
	return nil
}

func bootstrap(configPath string) (*config.AppConfig, *zap.Logger, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		zap.L().Error("не удалось создать логгер", zap.Error(err))
		return nil, nil, err
	}

	return cfg, log, nil
}
