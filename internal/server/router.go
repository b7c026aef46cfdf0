package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/throttle-vault/vault/internal/accounts"
	"github.com/throttle-vault/vault/internal/catalog"
	"github.com/throttle-vault/vault/internal/garage"
)

const usernameContextKey = "vault_username"

var (
	errMissingCatalogStore = errors.New("catalog store dependency required")
	errMissingGarageStore  = errors.New("garage store dependency required")
	errMissingAccounts     = errors.New("accounts service dependency required")
	errMissingTokenManager = errors.New("token manager dependency required")
	errInvalidAuth         = errors.New("authorization header missing or invalid")
)

// CatalogStore is the catalog persistence surface consumed by the router.
type CatalogStore interface {
	List(ctx context.Context) ([]catalog.Summary, error)
	Get(ctx context.Context, slug string) (*catalog.CarModel, error)
	Create(ctx context.Context, model *catalog.CarModel) (*catalog.CarModel, error)
	Update(ctx context.Context, slug string, model *catalog.CarModel) (*catalog.CarModel, error)
	Remove(ctx context.Context, slug string) error
}

// GarageStore is the garage persistence surface consumed by the router.
type GarageStore interface {
	ListByUser(ctx context.Context, username string) ([]garage.GarageCar, error)
	Get(ctx context.Context, id string) (*garage.GarageCar, error)
	Create(ctx context.Context, car *garage.GarageCar) (*garage.GarageCar, error)
	Update(ctx context.Context, id string, car *garage.GarageCar) (*garage.GarageCar, error)
	Remove(ctx context.Context, id string) error
	AddNote(ctx context.Context, id string, note garage.Note) (*garage.GarageCar, error)
	UpdateNote(ctx context.Context, id, noteID string, patch garage.NotePatch) (*garage.GarageCar, error)
	RemoveNote(ctx context.Context, id, noteID string) (*garage.GarageCar, error)
	AddServiceLog(ctx context.Context, id string, log garage.ServiceLog) (*garage.GarageCar, error)
}

// AccountsService issues and verifies user credentials.
type AccountsService interface {
	Register(ctx context.Context, username, password string) (*accounts.Account, error)
	Authenticate(ctx context.Context, username, password string) (*accounts.Account, error)
}

// TokenManager issues and validates bearer tokens for account usernames.
type TokenManager interface {
	IssueToken(ctx context.Context, username string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the router's collaborators.
type Dependencies struct {
	Catalog  CatalogStore
	Garage   GarageStore
	Accounts AccountsService
	Tokens   TokenManager
	Logger   *zap.Logger
}

// NewHTTPHandler builds the REST surface: public catalog reads and auth
// endpoints, bearer-protected catalog writes, and the fully protected
// owner-scoped garage resource.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Catalog == nil {
		return nil, errMissingCatalogStore
	}
	if deps.Garage == nil {
		return nil, errMissingGarageStore
	}
	if deps.Accounts == nil {
		return nil, errMissingAccounts
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		catalog:  deps.Catalog,
		garage:   deps.Garage,
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		logger:   logger,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)

	router.GET("/api/cars", handler.handleListCars)
	router.GET("/api/cars/:slug", handler.handleGetCar)

	carWrites := router.Group("/api/cars")
	carWrites.Use(handler.authorizeRequest)
	carWrites.POST("", handler.handleCreateCar)
	carWrites.PUT("/:slug", handler.handleUpdateCar)
	carWrites.DELETE("/:slug", handler.handleDeleteCar)

	garageGroup := router.Group("/api/garage")
	garageGroup.Use(handler.authorizeRequest)
	// Nested sub-resources registered ahead of the generic :id handlers.
	garageGroup.POST("/:id/notes", handler.handleAddNote)
	garageGroup.PUT("/:id/notes/:noteId", handler.handleUpdateNote)
	garageGroup.DELETE("/:id/notes/:noteId", handler.handleRemoveNote)
	garageGroup.POST("/:id/service-logs", handler.handleAddServiceLog)
	garageGroup.GET("", handler.handleListGarage)
	garageGroup.GET("/:id", handler.handleGetGarageCar)
	garageGroup.POST("", handler.handleCreateGarageCar)
	garageGroup.PUT("/:id", handler.handleUpdateGarageCar)
	garageGroup.DELETE("/:id", handler.handleDeleteGarageCar)

	return router, nil
}

type httpHandler struct {
	catalog  CatalogStore
	garage   GarageStore
	accounts AccountsService
	tokens   TokenManager
	logger   *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuth.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuth.Error()})
		return
	}
	username, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(usernameContextKey, username)
	c.Next()
}
