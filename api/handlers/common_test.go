package handlers_test

import (
	"bytes"
	"encoding/json"
	"messenger/api/routes"
	"messenger/db"
	"messenger/models"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB подменяет глобальный ORM на свежую in-memory sqlite базу
func setupTestDB(t *testing.T) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// один коннект, иначе каждый коннект пула получит свою :memory: базу
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(&models.User{}, &models.UserTokens{}, &models.Message{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if err := db.EnsureMessageIndexes(database); err != nil {
		t.Fatalf("Failed to create message indexes: %v", err)
	}

	db.ORM = database
}

func createTestUser(t *testing.T, nickname string) models.User {
	t.Helper()

	user := models.User{
		Nickname:  nickname,
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Password:  "testpassword",
		Signature: gofakeit.Sentence(3),
	}
	if err := db.ORM.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	routes.PublicApi(r)
	return r
}

// doRequest выполняет запрос от имени userID (через X-User-ID, как в тестовой
// аутентификации) и возвращает рекордер
func doRequest(t *testing.T, r *gin.Engine, method, path string, userID int64, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, body)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type messageListResponse struct {
	Messages []models.Message `json:"messages"`
}

func decodeMessages(t *testing.T, w *httptest.ResponseRecorder) []models.Message {
	t.Helper()
	var resp messageListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode message list: %v", err)
	}
	return resp.Messages
}
