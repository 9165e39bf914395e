package handlers_test

import (
	"encoding/json"
	"fmt"
	"messenger/db"
	"messenger/models"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func composePayload(recipient models.User, subject, body string) map[string]string {
	return map[string]string{
		"recipient": strconv.FormatInt(recipient.ID, 10),
		"subject":   subject,
		"body":      body,
	}
}

func TestComposeAndListMessages(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	w := doRequest(t, r, "POST", "/api/v1/messages/compose", alice.ID,
		composePayload(bob, "Hello", "Hi Bob, how are you?"))
	assert.Equal(t, http.StatusCreated, w.Code)

	inbox := decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/inbox", bob.ID, nil))
	assert.Len(t, inbox, 1)
	assert.Equal(t, alice.ID, inbox[0].SenderID)
	assert.Equal(t, "Hello", inbox[0].Subject)
	assert.Nil(t, inbox[0].ReadAt)

	outbox := decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/outbox", alice.ID, nil))
	assert.Len(t, outbox, 1)

	// У отправителя входящие пустые, у получателя пустые исходящие
	assert.Empty(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/inbox", alice.ID, nil)))
	assert.Empty(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/outbox", bob.ID, nil)))
}

func TestComposeMultipleRecipients(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	carol := createTestUser(t, "carol")

	payload := map[string]string{
		"recipient": fmt.Sprintf("%d, %d", bob.ID, carol.ID),
		"subject":   "Team update",
		"body":      "Meeting moved to Friday",
	}
	w := doRequest(t, r, "POST", "/api/v1/messages/compose", alice.ID, payload)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		IDs []int64 `json:"ids"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.IDs, 2)

	// Каждый получатель видит свою копию
	assert.Len(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/inbox", bob.ID, nil)), 1)
	assert.Len(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/inbox", carol.ID, nil)), 1)
	assert.Len(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/outbox", alice.ID, nil)), 2)
}

func TestComposeRejectsUnknownRecipients(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	payload := map[string]string{
		"recipient": fmt.Sprintf("%d, 9999", bob.ID),
		"subject":   "Hello",
		"body":      "text",
	}
	w := doRequest(t, r, "POST", "/api/v1/messages/compose", alice.ID, payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "incorrect")
	assert.Contains(t, w.Body.String(), "9999")

	// Ни одной копии не создано
	var count int64
	db.ORM.Model(&models.Message{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestViewMarksReadForRecipientOnly(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	carol := createTestUser(t, "carol")

	doRequest(t, r, "POST", "/api/v1/messages/compose", alice.ID,
		composePayload(bob, "Hello", "unread body"))

	var msg models.Message
	assert.NoError(t, db.ORM.First(&msg).Error)

	viewPath := fmt.Sprintf("/api/v1/messages/view/%d", msg.ID)

	// Просмотр отправителем не помечает прочитанным
	w := doRequest(t, r, "GET", viewPath, alice.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	db.ORM.First(&msg, msg.ID)
	assert.Nil(t, msg.ReadAt)

	// Просмотр получателем помечает
	w = doRequest(t, r, "GET", viewPath, bob.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	db.ORM.First(&msg, msg.ID)
	assert.NotNil(t, msg.ReadAt)

	// Посторонний получает 404
	w = doRequest(t, r, "GET", viewPath, carol.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReplyFlow(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	doRequest(t, r, "POST", "/api/v1/messages/compose", alice.ID,
		composePayload(bob, "Hello", "original body"))

	var parent models.Message
	assert.NoError(t, db.ORM.First(&parent).Error)

	// Префилл формы ответа
	w := doRequest(t, r, "GET", fmt.Sprintf("/api/v1/messages/reply/%d", parent.ID), bob.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var prefill struct {
		Form struct {
			Recipient string `json:"recipient"`
			Subject   string `json:"subject"`
			Body      string `json:"body"`
		} `json:"form"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &prefill))
	assert.Equal(t, strconv.FormatInt(alice.ID, 10), prefill.Form.Recipient)
	assert.Equal(t, "Re: Hello", prefill.Form.Subject)
	assert.True(t, strings.Contains(prefill.Form.Body, "alice wrote:"))
	assert.True(t, strings.Contains(prefill.Form.Body, "> original body"))

	// Отправка ответа
	w = doRequest(t, r, "POST", fmt.Sprintf("/api/v1/messages/reply/%d", parent.ID), bob.ID,
		composePayload(alice, "Re: Hello", "reply body"))
	assert.Equal(t, http.StatusCreated, w.Code)

	db.ORM.First(&parent, parent.ID)
	assert.NotNil(t, parent.RepliedAt)

	inbox := decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/inbox", alice.ID, nil))
	assert.Len(t, inbox, 1)
	assert.NotNil(t, inbox[0].ParentID)
	assert.Equal(t, parent.ID, *inbox[0].ParentID)
}

func TestReplyRequiresParticipant(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	carol := createTestUser(t, "carol")

	doRequest(t, r, "POST", "/api/v1/messages/compose", alice.ID,
		composePayload(bob, "Hello", "body"))

	var parent models.Message
	assert.NoError(t, db.ORM.First(&parent).Error)

	w := doRequest(t, r, "POST", fmt.Sprintf("/api/v1/messages/reply/%d", parent.ID), carol.ID,
		composePayload(alice, "Re: Hello", "hijack"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, r, "GET", fmt.Sprintf("/api/v1/messages/reply/%d", parent.ID), carol.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUndeleteAndTrash(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	doRequest(t, r, "POST", "/api/v1/messages/compose", alice.ID,
		composePayload(bob, "Hello", "body"))

	var msg models.Message
	assert.NoError(t, db.ORM.First(&msg).Error)

	// Получатель удаляет: входящие пустеют, сообщение в корзине
	w := doRequest(t, r, "POST", fmt.Sprintf("/api/v1/messages/delete/%d", msg.ID), bob.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/inbox", bob.ID, nil)))
	assert.Len(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/trash", bob.ID, nil)), 1)

	// У отправителя исходящие не тронуты
	assert.Len(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/outbox", alice.ID, nil)), 1)
	assert.Empty(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/trash", alice.ID, nil)))

	// Запись не удалена физически
	var count int64
	db.ORM.Model(&models.Message{}).Count(&count)
	assert.Equal(t, int64(1), count)

	// Восстановление возвращает во входящие
	w = doRequest(t, r, "POST", fmt.Sprintf("/api/v1/messages/undelete/%d", msg.ID), bob.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/inbox", bob.ID, nil)), 1)
	assert.Empty(t, decodeMessages(t, doRequest(t, r, "GET", "/api/v1/messages/trash", bob.ID, nil)))
}

func TestDeleteRequiresParticipant(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	carol := createTestUser(t, "carol")

	doRequest(t, r, "POST", "/api/v1/messages/compose", alice.ID,
		composePayload(bob, "Hello", "body"))

	var msg models.Message
	assert.NoError(t, db.ORM.First(&msg).Error)

	w := doRequest(t, r, "POST", fmt.Sprintf("/api/v1/messages/delete/%d", msg.ID), carol.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, r, "POST", fmt.Sprintf("/api/v1/messages/undelete/%d", msg.ID), carol.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComposePrefill(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	carol := createTestUser(t, "carol")

	path := fmt.Sprintf("/api/v1/messages/compose/%d+%d", bob.ID, carol.ID)
	w := doRequest(t, r, "GET", path, alice.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Form struct {
			Recipient       string   `json:"recipient"`
			RecipientWidget string   `json:"recipient_widget"`
			To              []string `json:"to"`
		} `json:"form"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, fmt.Sprintf("%d, %d", bob.ID, carol.ID), resp.Form.Recipient)
	assert.Contains(t, resp.Form.RecipientWidget, `name="recipient"`)
	assert.Len(t, resp.Form.To, 2)

	// Ни один ID не нашелся - 404
	w = doRequest(t, r, "GET", "/api/v1/messages/compose/9999", alice.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessagesRequireAuth(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()

	w := doRequest(t, r, "GET", "/api/v1/messages/inbox", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnreadCounterWithoutRedis(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	alice := createTestUser(t, "alice")

	// Без Redis счетчик деградирует в ноль, а не в ошибку
	w := doRequest(t, r, "GET", "/api/v1/messages/unread", alice.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread":0`)
}
