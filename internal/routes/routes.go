package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/lumina-chat/lumina-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Auth
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Post("/api/auth/signout", handlers.Signout)
	r.Get("/api/auth/me", handlers.Me)
	r.Post("/api/auth/check-username", handlers.CheckUsername)

	// User directory
	r.Get("/api/users", handlers.GetUser)
	r.Get("/api/users/search", handlers.SearchUsers)

	// Privacy and lock PIN
	r.Get("/api/settings/privacy", handlers.GetPrivacySettings)
	r.Put("/api/settings/privacy", handlers.UpdatePrivacySettings)
	r.Post("/api/settings/pin", handlers.SetPin)
	r.Post("/api/settings/pin/verify", handlers.VerifyPin)
	r.Post("/api/settings/pin/recover", handlers.RecoverPin)

	// Conversation ledger
	r.Get("/api/conversations", handlers.ListConversations)
	r.Post("/api/conversations/flag", handlers.SetConversationFlag)
	r.Post("/api/conversations/read", handlers.MarkConversationRead)

	// Messages (MongoDB history + Redis Pub/Sub fan-out)
	r.Get("/api/chat/history", handlers.ChatHistory)
	r.Post("/api/chat/send", handlers.SendMessage)
	r.Put("/api/chat/edit", handlers.EditMessage)
	r.Delete("/api/chat/message", handlers.DeleteMessage)
	r.Post("/api/chat/seen", handlers.MarkSeen)

	// Contacts and notifications
	r.Get("/api/contacts", handlers.ListContacts)
	r.Post("/api/contacts/request", handlers.SendContactRequest)
	r.Post("/api/contacts/accept", handlers.AcceptContactRequest)
	r.Post("/api/contacts/decline", handlers.DeclineContactRequest)
	r.Get("/api/notifications", handlers.ListNotifications)
	r.Post("/api/notifications/read", handlers.MarkNotificationRead)

	// Admin (accounts created directly in the database)
	r.Post("/api/admin/signin", handlers.AdminSignin)
	r.Post("/api/admin/broadcast", handlers.AdminBroadcast)
	r.Put("/api/admin/unblock-ip", handlers.AdminUnblockIP)

	// WebSocket gateway, one connection per open conversation
	r.Get("/ws/chat", handlers.ChatWebSocket)
}
