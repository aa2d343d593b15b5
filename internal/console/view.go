package console

import (
	"fmt"
	"strings"

	"tgadmin/internal/stories/broadcasts"
	"tgadmin/internal/stories/conversations"
	"tgadmin/internal/stories/promos"
	"tgadmin/internal/stories/tariffs"
)

// Действия строки рассылки. Набор считается из статуса и флага
// editable, удаление после отправки недоступно навсегда.
const (
	ActionEdit     = "edit"
	ActionSend     = "send"
	ActionDelete   = "delete"
	ActionEditText = "edit-text"
)

// BroadcastActions возвращает доступные действия строки рассылки:
// draft → edit/send/delete; sent+editable → edit/edit-text;
// sent → только edit.
func BroadcastActions(dto *broadcasts.DTO) []string {
	if dto == nil {
		return nil
	}
	if dto.Status == broadcasts.StatusDraft {
		return []string{ActionEdit, ActionSend, ActionDelete}
	}
	if dto.Editable {
		return []string{ActionEdit, ActionEditText}
	}
	return []string{ActionEdit}
}

// CanDeleteBroadcast — delete гаснет, как только рассылка отправлена.
func CanDeleteBroadcast(dto *broadcasts.DTO) bool {
	return dto != nil && dto.Status == broadcasts.StatusDraft
}

// ActiveBadge — двухпозиционный бейдж активности.
func ActiveBadge(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

// UnreadBadge ограничивает счётчик непрочитанных видимым "99+".
func UnreadBadge(count int) string {
	if count <= 0 {
		return ""
	}
	if count > 99 {
		return "99+"
	}
	return fmt.Sprintf("%d", count)
}

// Placeholder — текст пустой коллекции.
func Placeholder(entity string) string {
	switch entity {
	case "tariffs":
		return "No tariffs yet"
	case "buttons":
		return "No buttons yet"
	case "broadcasts":
		return "No broadcasts yet"
	case "promos":
		return "No promo codes yet"
	case "conversations":
		return "No conversations yet"
	default:
		return "Nothing yet"
	}
}

// TariffRow — однострочное представление тарифа для списка.
func TariffRow(dto *tariffs.DTO, selected bool) string {
	marker := " "
	if selected {
		marker = "*"
	}
	duration := "unlimited"
	if dto.DurationDays > 0 {
		duration = fmt.Sprintf("%d days", dto.DurationDays)
	}
	return fmt.Sprintf("%s [%d] %s — %s %s, %s (%s)",
		marker, dto.ID, dto.Title, FormatPrice(dto.PriceMinor), dto.Currency, duration, ActiveBadge(dto.Active))
}

// BroadcastRow — строка списка рассылок со счётчиками доставки.
func BroadcastRow(dto *broadcasts.DTO, selected bool) string {
	marker := " "
	if selected {
		marker = "*"
	}
	line := fmt.Sprintf("%s [%d] %s — %s", marker, dto.ID, dto.Title, dto.Status)
	if dto.Status == broadcasts.StatusSent {
		line += fmt.Sprintf(" (%d delivered, %d ok, %d failed)", dto.Deliveries, dto.Success, dto.Failed)
	}
	return line + " — actions: " + strings.Join(BroadcastActions(dto), "/")
}

// PromoRow — строка списка промокодов.
func PromoRow(dto *promos.DTO) string {
	expiry := "never expires"
	if dto.ExpiresAt != nil {
		expiry = "until " + dto.ExpiresAt.Format(dateInputLayout)
	}
	uses := fmt.Sprintf("%d used", dto.UsedCount)
	if dto.MaxUses > 0 {
		uses = fmt.Sprintf("%d/%d used", dto.UsedCount, dto.MaxUses)
	}
	return fmt.Sprintf("[%d] %s — %d%% / %d free days, %s, %s (%s)",
		dto.ID, dto.Code, dto.DiscountPercent, dto.FreeDays, uses, expiry, ActiveBadge(dto.Active))
}

// ConversationRow — строка инбокса: имя, превью последнего сообщения,
// бейдж непрочитанных.
func ConversationRow(summary *conversations.SummaryDTO, active bool) string {
	marker := " "
	if active {
		marker = ">"
	}
	name := displayName(summary.User)
	preview := ""
	if summary.LastMessage != nil {
		preview = summary.LastMessage.Body
		if len(preview) > 40 {
			preview = preview[:40] + "…"
		}
	}
	badge := UnreadBadge(summary.UnreadCount)
	if badge != "" {
		badge = " [" + badge + "]"
	}
	return fmt.Sprintf("%s %s%s — %s", marker, name, badge, preview)
}

// MessageLine — строка треда с направлением.
func MessageLine(msg *conversations.MessageDTO) string {
	prefix := "<-"
	if msg.Direction == conversations.DirectionOutbound {
		prefix = "->"
	}
	return fmt.Sprintf("%s [%s] %s", prefix, msg.CreatedAt.Format("2006-01-02 15:04"), msg.Body)
}

func displayName(user conversations.UserDTO) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" && user.Username != "" {
		name = "@" + user.Username
	}
	if name == "" {
		name = fmt.Sprintf("tg:%d", user.TelegramID)
	}
	return name
}
