package consequences

import (
	"fmt"
	"strings"

	"darkframe.ru/clanwar/internal/common"
)

var severityIcons = map[Severity]string{
	SeverityMinor:        "💥",
	SeverityModerate:     "☢️",
	SeverityMajor:        "☢️☢️",
	SeverityCatastrophic: "☠️",
}

// Announcement — текст объявления о применённых последствиях.
func Announcement(r *Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Клан %s нанёс удар %s по клану %s",
		severityIcons[r.Tier.Severity], r.Launch.LauncherClanID, r.Warhead, r.Launch.TargetClanID)
	if r.Fallback {
		fmt.Fprintf(&sb, " (боеголовка %s неизвестна, применён тир %s)", r.Launch.WarheadType, r.Warhead)
	}
	if r.Penalized > 0 {
		fmt.Fprintf(&sb, "\n📉 Репутация: %s у %d %s",
			common.FormatReputationChange(-r.Tier.ReputationLoss), r.Penalized,
			common.Pluralize(int64(r.Penalized), "игрока", "игроков", "игроков"))
	}
	if !r.CooldownUntil.IsZero() {
		fmt.Fprintf(&sb, "\n⏳ Кулдаун ОМП до %s", common.FormatDateTime(r.CooldownUntil))
	}
	if r.RightsGranted > 0 {
		fmt.Fprintf(&sb, "\n🎯 Права на ответный удар: %d", r.RightsGranted)
	}
	if !r.FullyApplied() {
		sb.WriteString("\n⚠️ Часть последствий не записалась, администраторы уведомлены")
	}
	return sb.String()
}
