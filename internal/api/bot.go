package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "ecotachos/internal/application"
	"ecotachos/internal/container"
	"ecotachos/internal/domain/entity"
)

const (
	msgStart = `👋 ¡Hola! Soy el bot de EcoTachos.

📸 Envíame una foto de un residuo y te diré si es orgánico, reciclable o inorgánico.

📋 Comandos:
/tacho <código> — elegir el tacho que vas a operar
/help — ayuda
/cancel — cancelar la operación actual`

	msgHelp = `ℹ️ Cómo usar el bot:

1️⃣ Elige un tacho con /tacho <código> (opcional)
2️⃣ Envía la foto del residuo
3️⃣ Recibirás la categoría y el tacho parpadeará

💡 Recomendaciones:
• Buena iluminación
• Un solo objeto en el centro
• Foto nítida

📋 Comandos:
/tacho <código> — elegir tacho
/cancel — cancelar`

	msgBinUsage        = "✍️ Uso: /tacho <código>, por ejemplo /tacho TCH-001"
	msgBinNotFound     = "❓ No existe un tacho activo con ese código."
	msgCancelled       = "❌ Operación cancelada. Envía una foto cuando quieras."
	msgSendPhoto       = "📸 Por favor, envía una foto del residuo."
	msgUnknownCommand  = "❓ Comando desconocido. Usa /help para ver la ayuda."
	msgProcessing      = "⏳ Procesando la imagen..."
	msgProcessingError = "⚠️ No se pudo procesar la imagen. Intenta con otra foto."

	downloadTimeout = 30 * time.Second
)

// Bot Telegram-бот операторов тачо
type Bot struct {
	api             *tgbotapi.BotAPI
	c               *container.Container
	classifyTimeout time.Duration
	logger          *slog.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, classifyTimeout time.Duration, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("bot.authorized", "account", api.Self.UserName)

	return &Bot{
		api:             api,
		c:               c,
		classifyTimeout: classifyTimeout,
		logger:          logger,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Посты каналов и анонимные админы приходят без From
	if msg.From == nil || msg.Chat == nil {
		return
	}

	user, err := b.c.UserService.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error("bot.get_user_failed", "user_id", msg.From.ID, "error", err)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Фото: берём максимальное разрешение
	if len(msg.Photo) > 0 {
		b.handleImage(ctx, msg, user, msg.Photo[len(msg.Photo)-1].FileID)
		return
	}

	// Изображение, отправленное файлом
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		b.handleImage(ctx, msg, user, msg.Document.FileID)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	switch msg.Command() {
	case "start":
		if _, err := b.c.UserService.SetState(ctx, user.ID, user.ChatID, entity.StateMainMenu); err != nil {
			b.logger.Error("bot.save_user_failed", "user_id", user.ID, "error", err)
		}
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "tacho":
		b.handleSelectBin(ctx, msg, user)

	case "cancel":
		if _, err := b.c.UserService.Cancel(ctx, user.ID, user.ChatID); err != nil {
			b.logger.Error("bot.save_user_failed", "user_id", user.ID, "error", err)
		}
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handleSelectBin проверяет, что тачо существует, и запоминает его за оператором
func (b *Bot) handleSelectBin(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		b.sendMessage(msg.Chat.ID, msgBinUsage)
		return
	}

	bin, err := b.c.BinService.Get(ctx, code)
	if err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			b.logger.Error("bot.get_bin_failed", "tacho", code, "error", err)
		}
		b.sendMessage(msg.Chat.ID, msgBinNotFound)
		return
	}

	if _, err := b.c.UserService.SelectBin(ctx, user.ID, user.ChatID, bin.Code); err != nil {
		b.logger.Error("bot.save_user_failed", "user_id", user.ID, "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("🗑 Tacho %s seleccionado. Envía la foto del residuo.", bin.Code))
}

// handleImage скачивает изображение и прогоняет его через классификатор
func (b *Bot) handleImage(ctx context.Context, msg *tgbotapi.Message, user *entity.User, fileID string) {
	if _, err := b.c.UserService.SetState(ctx, user.ID, user.ChatID, entity.StateProcessing); err != nil {
		b.logger.Error("bot.save_user_failed", "user_id", user.ID, "error", err)
	}
	b.sendMessage(msg.Chat.ID, msgProcessing)

	defer func() {
		next := entity.StateMainMenu
		if user.BinCode != "" {
			next = entity.StateAwaitingPhoto
		}
		if _, err := b.c.UserService.SetState(ctx, user.ID, user.ChatID, next); err != nil {
			b.logger.Error("bot.save_user_failed", "user_id", user.ID, "error", err)
		}
	}()

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.logger.Error("bot.download_failed", "user_id", user.ID, "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	cctx, cancel := context.WithTimeout(ctx, b.classifyTimeout)
	defer cancel()

	res, err := b.c.ClassificationService.Classify(cctx, app.ClassifyRequest{
		Image:   entity.ImageInput{Data: imageData},
		BinCode: user.BinCode,
	})
	if err != nil {
		b.logger.Warn("bot.classify_failed", "user_id", user.ID, "tacho", user.BinCode, "error", err)
	}

	b.sendMessage(msg.Chat.ID, formatResult(res))
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("bot.send_failed", "chat_id", chatID, "error", err)
	}
}

// formatResult текст ответа оператору
func formatResult(res *entity.ClassificationResult) string {
	switch {
	case res == nil:
		return msgProcessingError

	case res.Success && res.Primary != nil:
		var sb strings.Builder
		info := res.CategoryInfo
		if info == nil {
			i := entity.InfoFor(res.Primary.Category)
			info = &i
		}
		fmt.Fprintf(&sb, "%s %s (%.2f%%)\n", info.Icon, info.Label, res.Primary.Confidence)
		if info.Description != "" {
			fmt.Fprintf(&sb, "%s\n", info.Description)
		}
		others := res.TopK
		if len(others) > 0 && others[0] == *res.Primary {
			others = others[1:]
		}
		if len(others) > 0 {
			sb.WriteString("\nOtras opciones:\n")
			for _, p := range others {
				fmt.Fprintf(&sb, "• %s: %.2f%%\n", entity.InfoFor(p.Category).Label, p.Confidence)
			}
		}
		if res.Actuation != entity.SignalNone {
			fmt.Fprintf(&sb, "\n💡 Parpadeos del tacho: %d", res.Actuation)
		}
		return strings.TrimRight(sb.String(), "\n")

	case res.NoDetection:
		var sb strings.Builder
		sb.WriteString("🔍 " + res.Message)
		for _, s := range res.Suggestions {
			sb.WriteString("\n• " + s)
		}
		return sb.String()

	default:
		if res.Error != "" {
			return "⚠️ " + res.Error
		}
		return msgProcessingError
	}
}
