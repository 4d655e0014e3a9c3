package handlers

import (
	"Whisper/internal/config"
	"Whisper/internal/middleware"
	"Whisper/internal/service"
	"Whisper/internal/storage"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров.
// objects может быть nil: тогда /objects/* не обслуживается (объекты отдаёт внешнее хранилище).
func NewHandler(
	userService *service.UserService,
	messageService *service.MessageService,
	exportService *service.ExportService,
	objects storage.ObjectStore,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	userHandler := NewUserHandler(userService, messageService, logger, config)
	messageHandler := NewMessageHandler(messageService, logger, config)
	exportHandler := NewExportHandler(exportService, logger)
	viewHandler := NewViewHandler(userService, messageService, exportHandler, logger, config)

	r.Get("/health", Health)

	// User routes
	r.Post("/api/user/register", userHandler.Register)
	r.Post("/api/user/login", userHandler.Login)
	r.Post("/api/user/logout", userHandler.Logout)
	r.Post("/api/user/test", userHandler.Status)
	r.Get("/api/profiles/{username}", userHandler.PublicProfile)

	// Анонимная отправка
	r.Post("/api/send/{username}", messageHandler.Send)

	// Входящие получателя
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/api/user/me", userHandler.Me)
		r.Get("/api/messages", messageHandler.List)
		r.Get("/api/messages/{id}", messageHandler.Get)
		r.Post("/api/messages/{id}/read", messageHandler.SetRead)
		r.Get("/api/messages/{id}/audio", exportHandler.Audio)
		r.Get("/api/messages/{id}/image", exportHandler.Image)
		r.Get("/api/messages/{id}/video", exportHandler.Video)
	})

	if objects != nil {
		r.Get("/objects/*", NewObjectHandler(objects, logger).Serve)
	}

	// Страницы
	r.Get("/", viewHandler.Home)
	r.Post("/login", viewHandler.Login)
	r.Post("/signup", viewHandler.Signup)
	r.Post("/logout", viewHandler.Logout)
	r.Get("/send/{username}", viewHandler.SendForm)
	r.Post("/send/{username}", viewHandler.Send)
	r.Get("/dashboard", viewHandler.Dashboard)
	r.Post("/dashboard/messages/{id}/read", viewHandler.ToggleRead)
	r.Get("/dashboard/messages/{id}/export/{kind}", viewHandler.Export)

	return &Handler{Router: r}
}

// Health - проверка живости.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
