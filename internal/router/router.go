// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/bookshare/bookshare-go/internal/config"
	"github.com/bookshare/bookshare-go/internal/handler"
	"github.com/bookshare/bookshare-go/internal/middleware"
	"github.com/bookshare/bookshare-go/internal/model"
)

// Handlers bundles every HTTP handler the router mounts. All fields are
// required.
type Handlers struct {
	Auth      *handler.AuthHandler
	Books     *handler.BookHandler
	Genres    *handler.GenreHandler
	Languages *handler.LanguageHandler
	Reviews   *handler.ReviewHandler
	Users     *handler.UserHandler
	Roles     *handler.RoleHandler
}

// Register mounts every route on e. rdb may be nil, in which case the
// rate limiter and the response cache pass requests straight through.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	ratelimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Session lifecycle. All endpoints here are reachable without a
	// token; the limiter keeps credential and code guessing slow.
	auth := e.Group("/api/auth", ratelimit)
	auth.POST("/signup", h.Auth.SignUp)
	auth.POST("/send-code", h.Auth.SendCode)
	auth.POST("/confirm-code", h.Auth.ConfirmCode)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh-token", h.Auth.RefreshToken)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.DELETE("/logout", h.Auth.Logout)

	// Everything below requires a valid access token.
	api := e.Group("/api", middleware.JWTAuth(jwtSecret))
	api.GET("/me", h.Auth.Me)

	admin := middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin)
	superAdmin := middleware.RequireRole(model.RoleSuperAdmin)

	books := api.Group("/books")
	books.POST("", h.Books.Create)
	books.GET("", h.Books.List, cache)
	books.GET("/:id", h.Books.Get)
	books.GET("/mine", h.Books.ListMine)
	books.GET("/by-user", h.Books.ListByUser)
	books.GET("/by-genre", h.Books.ListByGenre, cache)
	books.GET("/by-language", h.Books.ListByLanguage, cache)
	books.GET("/search", h.Books.Search)
	books.PUT("/:id", h.Books.Update)
	books.DELETE("/:id", h.Books.Delete)

	genres := api.Group("/genres")
	genres.GET("", h.Genres.List, cache)
	genres.GET("/:id", h.Genres.Get)
	genres.GET("/search", h.Genres.Search)
	genres.POST("", h.Genres.Create, admin)
	genres.PUT("/:id", h.Genres.Update, admin)
	genres.DELETE("/:id", h.Genres.Delete, admin)

	languages := api.Group("/languages")
	languages.GET("", h.Languages.List, cache)
	languages.GET("/:id", h.Languages.Get)
	languages.POST("", h.Languages.Create, admin)
	languages.PUT("/:id", h.Languages.Update, admin)
	languages.DELETE("/:id", h.Languages.Delete, admin)

	reviews := api.Group("/reviews")
	reviews.POST("", h.Reviews.Create)
	reviews.GET("/:id", h.Reviews.Get)
	reviews.GET("/by-book", h.Reviews.ListByBook)
	reviews.GET("/by-user", h.Reviews.ListByUser)
	reviews.GET("/mine", h.Reviews.ListMine)
	reviews.PUT("/:id", h.Reviews.Update)
	reviews.DELETE("/:id", h.Reviews.Delete)

	// User directory. Reads and deletes are admin surface; deleting
	// another admin is re-checked in the handler against the target's
	// role. Profile updates allow self-service, so no admin gate there.
	users := api.Group("/users")
	users.GET("", h.Users.List, admin)
	users.GET("/:id", h.Users.Get, admin)
	users.GET("/by-username", h.Users.GetByUsername, admin)
	users.GET("/search", h.Users.Search, admin)
	users.GET("/by-role", h.Users.ListByRole, admin)
	users.GET("/count-by-role", h.Users.CountByRole, admin)
	users.GET("/exists", h.Users.Exists, admin)
	users.PUT("/:id", h.Users.UpdateProfile)
	users.PUT("/:id/role", h.Users.UpdateRole, superAdmin)
	users.DELETE("/:id", h.Users.Delete, admin)

	roles := api.Group("/admin/roles")
	roles.GET("", h.Roles.List, admin)
	roles.GET("/:id", h.Roles.Get, admin)
	roles.POST("", h.Roles.Create, superAdmin)
	roles.PUT("/:id", h.Roles.Update, superAdmin)
	roles.DELETE("/:id", h.Roles.Delete, superAdmin)
}
