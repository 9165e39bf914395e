package routes

import (
	"messenger/api/handlers"
	"messenger/api/middleware"

	"github.com/gin-gonic/gin"
)

func PublicApi(router *gin.Engine) *gin.RouterGroup {
	publicEndpoints := router.Group("/api/v1/")
	{
		publicEndpoints.POST("auth/register", handlers.Register)
		publicEndpoints.POST("auth/login", handlers.Login)
		publicEndpoints.POST("auth/logout", handlers.Logout)
	}

	privateEndpoints := router.Group("/api/v1/", middleware.TokenAuthMiddleware())
	{
		privateEndpoints.GET("user/search", handlers.UserSearch)
		privateEndpoints.GET("user/get/:id", handlers.UserGet)

		// Личные сообщения
		privateEndpoints.GET("messages/inbox", handlers.Inbox)
		privateEndpoints.GET("messages/outbox", handlers.Outbox)
		privateEndpoints.GET("messages/trash", handlers.Trash)
		privateEndpoints.GET("messages/unread", handlers.UnreadCounter)
		privateEndpoints.POST("messages/compose", handlers.Compose)
		privateEndpoints.GET("messages/compose/:recipient", handlers.ComposePrefill)
		privateEndpoints.GET("messages/reply/:message_id", handlers.ReplyPrefill)
		privateEndpoints.POST("messages/reply/:message_id", handlers.Reply)
		privateEndpoints.GET("messages/view/:message_id", handlers.View)
		privateEndpoints.POST("messages/delete/:message_id", handlers.Delete)
		privateEndpoints.POST("messages/undelete/:message_id", handlers.Undelete)

		privateEndpoints.GET("ws", handlers.WSNotifyHandler)
	}
	return privateEndpoints
}
