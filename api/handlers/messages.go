package handlers

import (
	"errors"
	"messenger/api/middleware"
	"messenger/forms"
	"messenger/services"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceName = "messenger"

var messageService = services.NewMessageService()
var recipientField = forms.RecipientField{}

type ComposeRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	Subject   string `json:"subject" binding:"required"`
	Body      string `json:"body" binding:"required"`
}

func currentUserID(c *gin.Context) (int64, bool) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}

func messageIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message_id"})
		return 0, false
	}
	return id, true
}

// Inbox - список входящих сообщений пользователя
func Inbox(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messages, err := messageService.Inbox(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load inbox"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Outbox - список отправленных сообщений пользователя
func Outbox(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messages, err := messageService.Outbox(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load outbox"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Trash - список сообщений, удаленных пользователем со своей стороны
func Trash(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messages, err := messageService.Trash(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load trash"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Compose - отправка нового сообщения одному или нескольким получателям.
// Получатели передаются строкой с ID через запятую, как их отдает
// скрытое поле формы.
func Compose(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ComposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	recipients, err := recipientField.Clean(c.Request.Context(), req.Recipient)
	if err != nil {
		var vErr *forms.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if len(recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipient is required"})
		return
	}

	start := time.Now()
	sent, err := messageService.Compose(c.Request.Context(), userID, recipients, req.Subject, req.Body, nil)
	if err != nil {
		middleware.RecordMessageOperation("compose", "error", serviceName, time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	middleware.RecordMessageOperation("compose", "ok", serviceName, time.Since(start))

	ids := make([]int64, 0, len(sent))
	for _, msg := range sent {
		ids = append(ids, msg.ID)
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Message successfully sent", "ids": ids})
}

// ComposePrefill - префилл формы нового сообщения. Получатели задаются в пути
// через "+": /messages/compose/1+2. Если ни один ID не нашелся - 404.
func ComposePrefill(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	var ids []int64
	for _, raw := range strings.Split(c.Param("recipient"), "+") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}

	recipients, err := services.GetUsersByIDs(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if len(recipients) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipients not found"})
		return
	}

	signatures := make([]string, 0, len(recipients))
	for _, r := range recipients {
		signatures = append(signatures, r.Signature)
	}
	value := forms.WidgetValue(recipients)
	c.JSON(http.StatusOK, gin.H{"form": gin.H{
		"recipient":        value,
		"recipient_widget": forms.RenderHiddenInput("recipient", value),
		"to":               signatures,
		"to_html":          forms.RenderPlainText(strings.Join(signatures, "\n")),
	}})
}

// ReplyPrefill - префилл формы ответа: получатель - отправитель родительского
// сообщения, тема с "Re: ", тело - цитата оригинала
func ReplyPrefill(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	parent, err := messageService.Get(c.Request.Context(), messageID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	sender, err := services.GetUser(c.Request.Context(), parent.SenderID)
	senderName := ""
	signature := ""
	if err == nil {
		senderName = sender.Nickname
		signature = sender.Signature
	}

	c.JSON(http.StatusOK, gin.H{"form": gin.H{
		"recipient": strconv.FormatInt(parent.SenderID, 10),
		"subject":   services.ReplySubject(parent.Subject),
		"body":      services.FormatQuote(senderName, parent.Body),
		"to":        []string{signature},
	}})
}

// Reply - отправка ответа на сообщение. Отвечать может только участник
// переписки; у родительского сообщения проставляется replied_at.
func Reply(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	parent, err := messageService.Get(c.Request.Context(), messageID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	var req ComposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	recipients, err := recipientField.Clean(c.Request.Context(), req.Recipient)
	if err != nil {
		var vErr *forms.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if len(recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipient is required"})
		return
	}

	start := time.Now()
	sent, err := messageService.Compose(c.Request.Context(), userID, recipients, req.Subject, req.Body, parent)
	if err != nil {
		middleware.RecordMessageOperation("reply", "error", serviceName, time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	middleware.RecordMessageOperation("reply", "ok", serviceName, time.Since(start))

	ids := make([]int64, 0, len(sent))
	for _, msg := range sent {
		ids = append(ids, msg.ID)
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Message successfully sent", "ids": ids})
}

// View - просмотр одного сообщения. Доступен только отправителю и получателю;
// при первом просмотре получателем проставляется read_at.
func View(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	start := time.Now()
	msg, err := messageService.Get(c.Request.Context(), messageID, userID)
	if err != nil {
		middleware.RecordMessageOperation("view", "not_found", serviceName, time.Since(start))
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	if err := messageService.MarkRead(c.Request.Context(), msg, userID); err != nil {
		middleware.RecordMessageOperation("view", "error", serviceName, time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark message read"})
		return
	}
	middleware.RecordMessageOperation("view", "ok", serviceName, time.Since(start))

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// Delete - мягкое удаление: помечает сообщение удаленным со стороны
// пользователя. Физически запись не удаляется, пока обе стороны не
// пометят ее удаленной.
func Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	start := time.Now()
	_, err := messageService.Delete(c.Request.Context(), messageID, userID)
	if err != nil {
		middleware.RecordMessageOperation("delete", "not_found", serviceName, time.Since(start))
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	middleware.RecordMessageOperation("delete", "ok", serviceName, time.Since(start))
	c.JSON(http.StatusOK, gin.H{"message": "Message successfully deleted"})
}

// Undelete - восстановление сообщения из корзины
func Undelete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	start := time.Now()
	_, err := messageService.Undelete(c.Request.Context(), messageID, userID)
	if err != nil {
		middleware.RecordMessageOperation("undelete", "not_found", serviceName, time.Since(start))
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	middleware.RecordMessageOperation("undelete", "ok", serviceName, time.Since(start))
	c.JSON(http.StatusOK, gin.H{"message": "Message successfully recovered"})
}

// UnreadCounter - число непрочитанных сообщений пользователя
func UnreadCounter(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	count, err := services.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get unread counter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
