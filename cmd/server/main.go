package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kidswap/backend/internal/config"
	"github.com/kidswap/backend/internal/handlers"
	appMiddleware "github.com/kidswap/backend/internal/middleware"
	"github.com/kidswap/backend/internal/services"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Firebase Auth (optional): public-profile lookups for Firebase-minted
	// users, and with AUTH_PROVIDER=firebase the request auth scheme itself.
	authClient, err := appMiddleware.NewFirebaseAuthClient(context.Background())
	if err != nil {
		log.Printf("Warning: failed to initialize Firebase Auth client: %v", err)
	}

	authMW := appMiddleware.JWTAuth(cfg.JWTSecret)
	if cfg.AuthProvider == "firebase" {
		if authClient == nil {
			log.Fatalf("AUTH_PROVIDER=firebase but the Firebase Auth client failed to initialize")
		}
		authMW = appMiddleware.FirebaseAuth(authClient)
		log.Printf("Authenticating requests with Firebase ID tokens")
	}

	// Stores: Mongo when MONGO_URI is set, in-memory otherwise (local dev).
	var (
		profileStore      services.ProfileStore
		listingStore      services.ListingStore
		tradeStore        services.TradeStore
		rewardStore       services.RewardStore
		notificationStore services.NotificationStore
		chatStore         services.ChatStore
		feedbackStore     services.FeedbackStore
		verificationStore services.VerificationStore
		flagStore         services.FlagStore
	)
	if cfg.MongoURI != "" {
		client, db, err := services.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("MongoDB connection failed: %v", err)
		}
		defer client.Disconnect(context.Background())

		profileStore = services.NewMongoProfileStore(ctx, db)
		listingStore = services.NewMongoListingStore(ctx, db)
		tradeStore = services.NewMongoTradeStore(ctx, db)
		rewardStore = services.NewMongoRewardStore(ctx, db)
		notificationStore = services.NewMongoNotificationStore(ctx, db)
		chatStore = services.NewMongoChatStore(ctx, db)
		feedbackStore = services.NewMongoFeedbackStore(ctx, db)
		verificationStore = services.NewMongoVerificationStore(ctx, db)
		flagStore = services.NewMongoFlagStore(ctx, db)
	} else {
		log.Printf("MONGO_URI not set, using in-memory stores (data is not persisted)")
		profileStore = services.NewMemoryProfileStore()
		listingStore = services.NewMemoryListingStore()
		tradeStore = services.NewMemoryTradeStore()
		rewardStore = services.NewMemoryRewardStore()
		notificationStore = services.NewMemoryNotificationStore()
		chatStore = services.NewMemoryChatStore()
		feedbackStore = services.NewMemoryFeedbackStore()
		verificationStore = services.NewMemoryVerificationStore()
		flagStore = services.NewMemoryFlagStore()
	}

	// Outbound email is optional; without a key codes are logged instead.
	var mailer *services.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = services.NewMailer(cfg.SendGridAPIKey, cfg.SupportFrom, cfg.SupportTo)
	} else {
		log.Printf("SENDGRID_API_KEY not set, verification codes will be logged")
	}

	// Photo moderation requires a GCS bucket; without one uploads skip review.
	var moderation *services.ModerationService
	if cfg.StorageBucket != "" {
		moderation, err = services.NewModerationService(ctx, cfg.StorageBucket, flagStore)
		if err != nil {
			log.Fatalf("Moderation service init failed: %v", err)
		}
	} else {
		log.Printf("STORAGE_BUCKET not set, photo moderation is disabled")
	}

	imageService, err := services.NewImageService(ctx, cfg.StorageBucket, cfg.UploadDir)
	if err != nil {
		log.Fatalf("Image service init failed: %v", err)
	}

	notificationService := services.NewNotificationService(notificationStore)
	rewardService := services.NewRewardService(rewardStore)
	tradeService := services.NewTradeService(tradeStore, listingStore, profileStore, rewardService, notificationService)
	accountService := services.NewAccountService(profileStore, listingStore, verificationStore, rewardService, notificationService, mailer, cfg.JWTSecret, cfg.JWTExpiration)
	listingService := services.NewListingService(listingStore, profileStore, rewardService, moderation)
	verificationService := services.NewVerificationService(verificationStore, profileStore, notificationService)
	chatService := services.NewChatService(chatStore, tradeStore, profileStore)
	feedbackService := services.NewFeedbackService(feedbackStore, tradeStore, rewardService)

	authHandler := handlers.NewAuthHandler(accountService)
	tradeHandler := handlers.NewTradeHandler(tradeService)
	listingHandler := handlers.NewListingHandler(listingService)
	rewardHandler := handlers.NewRewardHandler(rewardService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	chatHandler := handlers.NewChatHandler(chatService)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackService)
	verificationHandler := handlers.NewVerificationHandler(verificationService)
	profileHandler := handlers.NewProfileHandler(accountService, feedbackService, rewardService, tradeService, listingService, verificationService, authClient)
	imageHandler := handlers.NewImageHandler(imageService, cfg.MaxUploadSizeMB)
	accountHandler := handlers.NewAccountHandler(accountService, imageService)
	supportHandler := handlers.NewSupportHandler(services.NewRecaptchaVerifier(cfg.RecaptchaSecret), mailer)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register/parent", authHandler.RegisterParent)
			r.Post("/register/kid", authHandler.RegisterKid)
			r.Get("/register/steps", authHandler.RegistrationSteps)
			r.Post("/login", authHandler.Login)
		})
		r.Post("/support", supportHandler.SubmitSupportRequest)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Post("/auth/verify-email", authHandler.VerifyEmail)
			r.Post("/auth/resend-code", authHandler.ResendCode)

			r.Route("/trades", func(r chi.Router) {
				r.Post("/", tradeHandler.Propose)
				r.Get("/", tradeHandler.ListMine)
				r.Get("/pending-approvals", tradeHandler.ListPendingApprovals)

				r.Route("/{tradeId}", func(r chi.Router) {
					r.Get("/", tradeHandler.Get)
					r.Post("/decision", tradeHandler.Decide)
					r.Post("/schedule", tradeHandler.Schedule)
					r.Post("/complete", tradeHandler.Complete)
					r.Post("/cancel", tradeHandler.Cancel)

					// Chat (only open once both parents approved)
					r.Get("/messages", chatHandler.List)
					r.Post("/messages", chatHandler.Send)
					r.Get("/messages/stream", chatHandler.Stream)

					// Feedback
					r.Post("/feedback", feedbackHandler.Submit)
					r.Get("/feedback", feedbackHandler.ForTrade)
				})
			})

			r.Route("/listings", func(r chi.Router) {
				r.Post("/", listingHandler.Create)
				r.Get("/", listingHandler.Discover)
				r.Get("/mine", listingHandler.ListMine)
				r.Get("/categories", listingHandler.Categories)

				r.Route("/{listingId}", func(r chi.Router) {
					r.Get("/", listingHandler.Get)
					r.Put("/", listingHandler.Update)
					r.Post("/retract", listingHandler.Retract)
					r.Post("/reactivate", listingHandler.Reactivate)
				})
			})

			r.Route("/rewards", func(r chi.Router) {
				r.Get("/balance", rewardHandler.Balance)
				r.Get("/history", rewardHandler.History)
				r.Post("/redeem", rewardHandler.Redeem)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Put("/{notificationId}/read", notificationHandler.MarkRead)
			})

			r.Route("/verifications", func(r chi.Router) {
				r.Get("/pending", verificationHandler.ListPending)
				r.With(appMiddleware.RequireAdmin).Post("/{requestId}/resolve", verificationHandler.Resolve)
			})

			r.Get("/profile/me", profileHandler.Me)
			r.Get("/profile/dashboard", profileHandler.Dashboard)
			r.Post("/profile/membership", profileHandler.UpgradeMembership)
			r.Get("/users/{userId}", profileHandler.GetPublicProfile)
			r.Get("/users/{userId}/feedback", feedbackHandler.ForUser)

			// Image upload
			r.Post("/upload", imageHandler.Upload)

			// Account deletion
			r.Delete("/account", accountHandler.DeleteAccount)
		})
	})

	// Serve uploaded files (local dev without a GCS bucket)
	workDir, _ := os.Getwd()
	filesDir := http.Dir(workDir + "/" + cfg.UploadDir)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(filesDir)))

	log.Printf("🚀 KidSwap API server starting on %s", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
