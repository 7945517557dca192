package api

import (
	"context"
	"log/slog"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"ecotachos/internal/domain/entity"
)

func TestFormatResult(t *testing.T) {
	success := entity.NewSuccessResult(
		entity.Prediction{Category: entity.CategoryRecyclable, Confidence: 91},
		[]entity.Prediction{
			{Category: entity.CategoryRecyclable, Confidence: 91},
			{Category: entity.CategoryOrganic, Confidence: 42},
		},
		entity.BackendRoboflowWorkflow, 0,
	)
	text := formatResult(success)
	require.Contains(t, text, "RECICLABLE")
	require.Contains(t, text, "91.00%")
	require.Contains(t, text, "ORGÁNICO: 42.00%")
	require.Contains(t, text, "Parpadeos del tacho: 3")

	noDetection := formatResult(entity.NewNoDetectionResult(entity.BackendLocal))
	require.Contains(t, noDetection, "No se detectaron objetos")
	require.Contains(t, noDetection, entity.NoDetectionSuggestions[0])

	require.Equal(t, "⚠️ boom", formatResult(entity.NewErrorResult("", "boom")))
	require.Equal(t, msgProcessingError, formatResult(nil))
}

func TestFormatResult_NonCanonicalPrimaryListsAllOptions(t *testing.T) {
	res := entity.NewSuccessResult(
		entity.Prediction{Category: "bottle", Confidence: 90},
		[]entity.Prediction{
			{Category: "bottle", Confidence: 90},
			{Category: entity.CategoryOrganic, Confidence: 10},
		},
		entity.BackendRoboflowModel, 0,
	)
	text := formatResult(res)
	require.Contains(t, text, "INORGÁNICO (90.00%)")
	require.Contains(t, text, "ORGÁNICO: 10.00%")
	require.NotContains(t, text, "Parpadeos")
}

func TestHandleMessage_SkipsMessagesWithoutSender(t *testing.T) {
	b := &Bot{logger: slog.Default()}

	require.NotPanics(t, func() {
		b.handleMessage(context.Background(), &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: -100123},
			Text: "/start",
		})
	})
}
