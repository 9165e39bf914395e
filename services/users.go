package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"messenger/db"
	"messenger/models"
	"strings"

	"golang.org/x/crypto/argon2"
)

type UserHandler struct {
	Nickname *string
	Password *string
	Token    *string

	DbModel *models.User
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func verifyPassword(password, stored string) error {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return errors.New("invalid password format")
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	if hex.EncodeToString(hash) != parts[1] {
		return errors.New("invalid password")
	}
	return nil
}

func (h *UserHandler) Register() (userId *int64, err error) {
	if h.DbModel == nil || h.DbModel.Password == "" {
		return nil, errors.New("password is empty")
	}

	// Проверяем, существует ли пользователь с таким никнеймом
	var alreadyExists int64
	err = db.ORM.Model(&models.User{}).Where("nickname = ?", *h.Nickname).Count(&alreadyExists).Error
	if err != nil {
		return nil, err
	}
	if alreadyExists > 0 {
		return nil, errors.New("user already exists")
	}

	passwordHash, err := hashPassword(h.DbModel.Password)
	if err != nil {
		return nil, err
	}
	h.DbModel.Password = passwordHash

	trx := db.ORM.Create(h.DbModel)
	if trx.Error != nil {
		return nil, trx.Error
	}
	return &h.DbModel.ID, nil
}

func (h *UserHandler) Login() (token string, err error) {
	var storedUser models.User
	err = db.ORM.Model(&models.User{}).Where("nickname = ?", *h.Nickname).First(&storedUser).Error
	if err != nil {
		return "", errors.New("invalid nickname")
	}

	if err = verifyPassword(*h.Password, storedUser.Password); err != nil {
		return "", errors.New("invalid password")
	}

	// Удаляем старые токены (если они есть)
	h.DbModel = &storedUser
	_ = h.Logout()

	// Генерируем новый токен
	tokenBytes := make([]byte, 32)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token = hex.EncodeToString(tokenBytes)

	err = db.ORM.Create(&models.UserTokens{
		UserID: storedUser.ID,
		Token:  token,
	}).Error
	if err != nil {
		return "", err
	}
	return token, nil
}

func (h *UserHandler) Logout() (err error) {
	if h.DbModel == nil || h.DbModel.ID == 0 {
		var storedUser models.User
		if h.Nickname == nil {
			return errors.New("user not found")
		}
		err = db.ORM.Model(&models.User{}).Where("nickname = ?", *h.Nickname).First(&storedUser).Error
		if err != nil {
			return errors.New("user not found")
		}
		h.DbModel = &storedUser
	}
	return db.ORM.Where("user_id = ?", h.DbModel.ID).Delete(&models.UserTokens{}).Error
}

// ResolveToken возвращает ID пользователя по bearer-токену
func ResolveToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, errors.New("token is empty")
	}
	var userToken models.UserTokens
	err := db.GetReadOnlyDB(ctx).Where("token = ?", token).First(&userToken).Error
	if err != nil {
		return 0, errors.New("invalid token")
	}
	return userToken.UserID, nil
}

// SearchUsers ищет пользователей по префиксам имени и фамилии
func SearchUsers(ctx context.Context, firstName, lastName string, limit, offset int) ([]models.User, error) {
	var users []models.User
	query := db.GetReadOnlyDB(ctx).Model(&models.User{})
	if firstName != "" {
		query = query.Where("first_name LIKE ?", firstName+"%")
	}
	if lastName != "" {
		query = query.Where("last_name LIKE ?", lastName+"%")
	}
	err := query.Order("id").Limit(limit).Offset(offset).Find(&users).Error
	return users, err
}

func GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsersByIDs загружает пользователей по списку ID (для префилла формы compose)
func GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := db.GetReadOnlyDB(ctx).Where("id IN (?)", ids).Order("id").Find(&users).Error
	return users, err
}
