package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"lingo-server/auth"
	"lingo-server/config"
	"lingo-server/handlers"
	"lingo-server/middleware"
	"lingo-server/services"
	"lingo-server/stores"
	"lingo-server/stream"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	db, err := stores.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	if err := stores.EnsureIndexes(ctx, db); err != nil {
		log.Printf("Failed to create indexes: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	// Stores and leaf components
	userStore := stores.NewMongoUserStore(db, redisClient)
	requestStore := stores.NewMongoFriendRequestStore(db)
	tokens := auth.NewJWTManager(cfg.JWTSecret, 24*time.Hour)
	hasher := auth.NewBcryptHasher()
	chatClient := stream.NewClient(cfg.Stream.APIKey, cfg.Stream.APISecret, cfg.Stream.BaseURL, cfg.Stream.ReservedUserID)

	// Services
	authService := services.NewAuthService(userStore, hasher, tokens, chatClient)
	userService := services.NewUserService(userStore, requestStore)
	chatService := services.NewChatService(chatClient)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	chatHandler := handlers.NewChatHandler(chatService)

	sessionGuard := middleware.SessionGuard(tokens, authService)
	limiter := middleware.NewLimiterStore(30, 10, 5*time.Minute)

	r := mux.NewRouter()
	r.Use(middleware.ErrorMiddleware())

	// Auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.Handle("/signup", middleware.RateLimit(limiter)(http.HandlerFunc(authHandler.Signup))).Methods("POST", "OPTIONS")
	authRouter.Handle("/signin", middleware.RateLimit(limiter)(http.HandlerFunc(authHandler.Signin))).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/google", authHandler.GoogleLogin).Methods("GET")
	authRouter.HandleFunc("/google/callback", authHandler.GoogleCallback).Methods("GET")
	authRouter.HandleFunc("/set-cookie", authHandler.SetCookie).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("", authHandler.DeleteAll).Methods("DELETE")
	authRouter.Handle("/logout", sessionGuard(http.HandlerFunc(authHandler.Logout))).Methods("POST", "OPTIONS")
	authRouter.Handle("/me", sessionGuard(http.HandlerFunc(authHandler.Me))).Methods("GET", "OPTIONS")
	authRouter.Handle("/onboard", sessionGuard(http.HandlerFunc(authHandler.Onboard))).Methods("POST", "OPTIONS")

	// User routes
	userRouter := r.PathPrefix("/user").Subrouter()

	protected := userRouter.NewRoute().Subrouter()
	protected.Use(sessionGuard)
	protected.HandleFunc("/recommendation", userHandler.GetRecommendedUsers).Methods("GET", "OPTIONS")
	protected.HandleFunc("/friends", userHandler.GetMyFriends).Methods("GET", "OPTIONS")
	protected.HandleFunc("/friend-request", userHandler.GetFriendRequests).Methods("GET", "OPTIONS")
	protected.HandleFunc("/outgoing-friend-request", userHandler.GetOutgoingFriendRequests).Methods("GET", "OPTIONS")
	protected.HandleFunc("/friend-request/{id}", userHandler.SendFriendRequest).Methods("POST", "OPTIONS")
	protected.HandleFunc("/accept/friend-request/{id}", userHandler.AcceptFriendRequest).Methods("PATCH", "OPTIONS")
	protected.HandleFunc("/reject/friend-request/{id}", userHandler.RejectFriendRequest).Methods("DELETE", "OPTIONS")

	// Public profile lookup; registered last so the named routes above win.
	userRouter.HandleFunc("/{id}", userHandler.GetUser).Methods("GET", "OPTIONS")

	// Chat routes
	chatRouter := r.PathPrefix("/chat").Subrouter()
	chatRouter.Use(sessionGuard)
	chatRouter.HandleFunc("/token", chatHandler.GetStreamToken).Methods("GET", "OPTIONS")

	handler := cors.New(cfg.CorsOptions()).Handler(r)
	handler = middleware.Logger(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on :%s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
