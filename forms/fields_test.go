package forms

import (
	"context"
	"fmt"
	"messenger/db"
	"messenger/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

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
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	db.ORM = database
}

func createUser(t *testing.T, nickname string) models.User {
	t.Helper()
	user := models.User{Nickname: nickname, Password: "x"}
	if err := db.ORM.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func TestCleanParsesAndDeduplicates(t *testing.T) {
	setupTestDB(t)
	alice := createUser(t, "alice")
	bob := createUser(t, "bob")

	field := RecipientField{}
	value := fmt.Sprintf(" %d, %d ,%d, ", alice.ID, bob.ID, alice.ID)
	users, err := field.Clean(context.Background(), value)
	assert.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestCleanEmptyValueIsValid(t *testing.T) {
	setupTestDB(t)

	field := RecipientField{}
	users, err := field.Clean(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Empty(t, users)
}

func TestCleanReportsAllBadIDs(t *testing.T) {
	setupTestDB(t)
	alice := createUser(t, "alice")

	field := RecipientField{}
	value := fmt.Sprintf("%d, 9999, abc", alice.ID)
	users, err := field.Clean(context.Background(), value)
	assert.Nil(t, users)
	assert.Error(t, err)

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "The following user IDs are incorrect")
	assert.Contains(t, vErr.Message, "9999")
	assert.Contains(t, vErr.Message, "abc")
	assert.NotContains(t, vErr.Message, fmt.Sprintf("%d", alice.ID))
}

func TestCleanFilterRejectsUsers(t *testing.T) {
	setupTestDB(t)
	alice := createUser(t, "alice")
	bob := createUser(t, "bob")

	field := RecipientField{
		Filter: func(user models.User) bool { return user.ID != bob.ID },
	}
	value := fmt.Sprintf("%d, %d", alice.ID, bob.ID)
	users, err := field.Clean(context.Background(), value)
	assert.Nil(t, users)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("%d", bob.ID))
}

func TestWidgetValue(t *testing.T) {
	users := []models.User{{ID: 3}, {ID: 7}}
	assert.Equal(t, "3, 7", WidgetValue(users))
	assert.Equal(t, "", WidgetValue(nil))
}

func TestRenderHiddenInput(t *testing.T) {
	html := RenderHiddenInput("recipient", `1" onload="x`)
	assert.Contains(t, html, `name="recipient"`)
	assert.NotContains(t, html, `onload="x`)
}

func TestRenderPlainTextEscapes(t *testing.T) {
	html := RenderPlainText("<script>alert(1)</script>")
	assert.Equal(t, "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>", html)
}
