package handlers

import (
	"messenger/models"
	"messenger/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Nickname  string `json:"nickname" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Firstname string `json:"first_name"`
	Lastname  string `json:"last_name"`
	Signature string `json:"signature"`
}

type LogoutRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Token    string `json:"token" binding:"required"`
}

func Register(c *gin.Context) {
	var registerRequest RegisterRequest
	if err := c.ShouldBindJSON(&registerRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	newUser := models.User{
		Nickname:  registerRequest.Nickname,
		FirstName: registerRequest.Firstname,
		LastName:  registerRequest.Lastname,
		Password:  registerRequest.Password,
		Signature: registerRequest.Signature,
	}

	userHandler := services.UserHandler{
		Nickname: &registerRequest.Nickname,
		Password: &registerRequest.Password,
		DbModel:  &newUser,
	}

	userId, err := userHandler.Register()
	if err != nil {
		if err.Error() == "user already exists" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id": userId,
		"message": "User registered successfully",
	})
}

func Login(c *gin.Context) {
	var loginRequest LoginRequest
	if err := c.ShouldBindJSON(&loginRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userHandler := services.UserHandler{
		Nickname: &loginRequest.Nickname,
		Password: &loginRequest.Password,
	}

	token, err := userHandler.Login()
	if err != nil {
		if err.Error() == "invalid nickname" || err.Error() == "invalid password" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Login successful",
		"token":    token,
		"nickname": userHandler.Nickname})
}

func Logout(c *gin.Context) {
	var logoutRequest LogoutRequest
	if err := c.ShouldBindJSON(&logoutRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userHandler := services.UserHandler{
		Nickname: &logoutRequest.Nickname,
		Token:    &logoutRequest.Token,
	}
	if err := userHandler.Logout(); err != nil {
		if err.Error() == "user not found" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}
