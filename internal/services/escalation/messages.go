package escalation

import (
	"fmt"
	"math"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
)

func displayName(info model.UserInfo, userID int64) string {
	if info.FirstName != "" {
		return info.FirstName
	}
	if info.Username != "" {
		return info.Username
	}
	return fmt.Sprintf("%d", userID)
}

func warningText(ruleID string, confidence float64, warnings, threshold, warningsLeft int) string {
	return fmt.Sprintf(
		"⚠️ <b>Предупреждение!</b>\n\n"+
			"Сообщение нарушает правила чата.\n"+
			"Нарушение: <b>%s</b>\n"+
			"Уверенность: <b>%d%%</b>\n\n"+
			"Предупреждений: <b>%d/%d</b>\n"+
			"До блокировки: <b>%d</b>\n\n"+
			"Пожалуйста, соблюдайте правила чата.",
		ruleID, int(math.Round(confidence*100)), warnings, threshold, warningsLeft,
	)
}

func banText(user model.UserInfo, userID int64, warnings int, ruleID string) string {
	return fmt.Sprintf(
		"🚫 <b>Пользователь заблокирован!</b>\n\n"+
			"Пользователь <b>%s</b> заблокирован за нарушение правил чата.\n"+
			"Количество предупреждений: <b>%d</b>\n"+
			"Последнее нарушение: <b>%s</b>",
		displayName(user, userID), warnings, ruleID,
	)
}
