// Package notify pushes booking notifications to the managers chat.
package notify

import (
	"context"
	"fmt"
	"strings"

	"rentacar/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier sends booking messages to a single managers chat. A nil
// notifier or a notifier without a bot is a silent no-op so the booking flow
// never depends on Telegram being configured.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zerolog.Logger
}

func NewTelegramNotifier(token string, chatID int64, debug bool, logger *zerolog.Logger) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return &TelegramNotifier{logger: logger}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = debug

	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifier ready")
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

func (n *TelegramNotifier) NotifyBookingReserved(ctx context.Context, booking *models.Booking) error {
	return n.send(formatBooking("🚗 New booking", booking))
}

func (n *TelegramNotifier) NotifyBookingCancelled(ctx context.Context, booking *models.Booking) error {
	return n.send(formatBooking("❌ Booking cancelled", booking))
}

func (n *TelegramNotifier) send(text string) error {
	if n == nil || n.bot == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func formatBooking(title string, booking *models.Booking) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s `%s`\n\n", title, booking.ID)
	fmt.Fprintf(&b, "*Car:* %s %s (%s)\n", booking.Car.Make, booking.Car.Model, booking.Car.CarID)
	fmt.Fprintf(&b, "*Dates:* %s - %s\n", booking.StartDate, booking.EndDate)
	fmt.Fprintf(&b, "*Pickup:* %s\n", booking.PickupLocation)
	if booking.ReturnLocation != "" && booking.ReturnLocation != booking.PickupLocation {
		fmt.Fprintf(&b, "*Return:* %s\n", booking.ReturnLocation)
	}
	fmt.Fprintf(&b, "*Total:* %.2f\n", booking.TotalPrice)
	fmt.Fprintf(&b, "*Status:* %s / %s", booking.Status, booking.PaymentStatus)
	return b.String()
}
