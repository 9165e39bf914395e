package forms

import (
	"context"
	"fmt"
	"html"
	"messenger/db"
	"messenger/models"
	"sort"
	"strconv"
	"strings"
)

// ValidationError - ошибка валидации формы, текст безопасен для ответа клиенту
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RecipientField разбирает строку с ID получателей, разделенными запятыми.
// Filter позволяет дополнительно отсеивать пользователей (например, заблокировавших
// отправителя); отсеянные попадают в ту же ошибку валидации, что и неизвестные ID.
type RecipientField struct {
	Filter func(user models.User) bool
}

// Clean превращает "1, 2,3" в список пользователей. Пустое значение валидно и
// дает пустой список - обязательность поля проверяет форма. Любой неизвестный
// или отфильтрованный ID приводит к одной ошибке со списком всех плохих ID.
func (f RecipientField) Clean(ctx context.Context, value string) ([]models.User, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	// Собираем множество ID, отбрасывая пустые и повторы
	idSet := make(map[string]struct{})
	for _, raw := range strings.Split(value, ",") {
		id := strings.TrimSpace(raw)
		if id != "" {
			idSet[id] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(idSet))
	unknown := make(map[string]struct{}, len(idSet))
	for id := range idSet {
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			// нечисловой ID заведомо никого не найдет
			unknown[id] = struct{}{}
			continue
		}
		ids = append(ids, parsed)
	}

	var users []models.User
	if len(ids) > 0 {
		err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("id IN (?)", ids).Find(&users).Error
		if err != nil {
			return nil, fmt.Errorf("failed to look up recipients: %w", err)
		}
	}

	// Разность множеств: введенные ID минус найденные
	found := make(map[string]struct{}, len(users))
	for _, user := range users {
		found[strconv.FormatInt(user.ID, 10)] = struct{}{}
	}
	for id := range idSet {
		if _, ok := found[id]; !ok {
			unknown[id] = struct{}{}
		}
	}

	var accepted []models.User
	var rejected []string
	for _, user := range users {
		if f.Filter != nil && !f.Filter(user) {
			rejected = append(rejected, strconv.FormatInt(user.ID, 10))
			continue
		}
		accepted = append(accepted, user)
	}

	if len(unknown) > 0 || len(rejected) > 0 {
		incorrect := make([]string, 0, len(unknown)+len(rejected))
		for id := range unknown {
			incorrect = append(incorrect, id)
		}
		incorrect = append(incorrect, rejected...)
		sort.Strings(incorrect)
		return nil, &ValidationError{
			Message: fmt.Sprintf("The following user IDs are incorrect: %s", strings.Join(incorrect, ", ")),
		}
	}

	return accepted, nil
}

// WidgetValue - значение скрытого поля получателей для префилла формы: "1, 2"
func WidgetValue(users []models.User) string {
	ids := make([]string, 0, len(users))
	for _, user := range users {
		ids = append(ids, strconv.FormatInt(user.ID, 10))
	}
	return strings.Join(ids, ", ")
}

// RenderHiddenInput - HTML скрытого поля
func RenderHiddenInput(name, value string) string {
	return fmt.Sprintf(
		`<input type="hidden" name="%s" value="%s">`,
		html.EscapeString(name), html.EscapeString(value),
	)
}

// RenderPlainText - HTML read-only поля: экранированный текст в абзаце
func RenderPlainText(value string) string {
	return fmt.Sprintf("<p>%s</p>", html.EscapeString(value))
}
