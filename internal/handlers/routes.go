package handlers

import "github.com/gin-gonic/gin"

// API groups the REST handlers.
type API struct {
	Rooms         *RoomHandler
	Messages      *MessageHandler
	Friends       *FriendHandler
	Notifications *NotificationHandler
	Whiteboards   *WhiteboardHandler
}

// Register mounts the REST routes on an authenticated group. sendLimit
// guards message sends.
func (a API) Register(r gin.IRoutes, sendLimit gin.HandlerFunc) {
	r.GET("/rooms", a.Rooms.ListRooms)
	r.POST("/rooms/private", a.Rooms.ResolvePrivateRoom)
	r.POST("/rooms/groups", a.Rooms.CreateGroup)
	r.PATCH("/rooms/:room_id", a.Rooms.UpdateGroup)
	r.POST("/rooms/:room_id/avatar", a.Rooms.UploadAvatar)
	r.DELETE("/rooms/:room_id/members/me", a.Rooms.LeaveGroup)

	r.GET("/rooms/:room_id/messages", a.Messages.History)
	r.POST("/rooms/:room_id/messages", sendLimit, a.Messages.Send)
	r.POST("/rooms/:room_id/media", a.Messages.UploadMedia)
	r.PATCH("/messages/:message_id", a.Messages.Edit)
	r.DELETE("/messages/:message_id", a.Messages.Delete)

	r.POST("/friends/requests", a.Friends.Request)
	r.POST("/friends/requests/:user_id/accept", a.Friends.Accept)
	r.DELETE("/friends/requests/:user_id", a.Friends.Decline)
	r.GET("/friends", a.Friends.ListFriends)
	r.GET("/friends/requests", a.Friends.ListRequests)
	r.GET("/users/search", a.Friends.Search)

	r.GET("/notifications", a.Notifications.List)
	r.POST("/notifications/:id/read", a.Notifications.MarkRead)
	r.DELETE("/notifications/:id", a.Notifications.Delete)

	r.POST("/whiteboards/:room_id/media", a.Whiteboards.UploadMedia)
}
