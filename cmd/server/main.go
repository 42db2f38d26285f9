package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/config"
	"github.com/bookshare/bookshare-go/internal/database"
	"github.com/bookshare/bookshare-go/internal/handler"
	"github.com/bookshare/bookshare-go/internal/mail"
	"github.com/bookshare/bookshare-go/internal/queue"
	"github.com/bookshare/bookshare-go/internal/repository"
	"github.com/bookshare/bookshare-go/internal/router"
	"github.com/bookshare/bookshare-go/internal/service"
)

func main() {
	// .env is a development convenience; in production the variables
	// come from the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	mailer, err := mail.NewSMTPSender(config.LoadMailConfig())
	if err != nil {
		log.Fatalf("mail: %v", err)
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	tokens := repository.NewTokenRepo(db)
	books := repository.NewBookRepo(db)
	genres := repository.NewGenreRepo(db)
	languages := repository.NewLanguageRepo(db)
	reviews := repository.NewReviewRepo(db)

	auth := service.NewAuthService(users, roles, tokens, mailer, cfg)

	h := router.Handlers{
		Auth:      handler.NewAuthHandler(auth),
		Books:     handler.NewBookHandler(books, genres, languages),
		Genres:    handler.NewGenreHandler(genres),
		Languages: handler.NewLanguageHandler(languages),
		Reviews:   handler.NewReviewHandler(reviews, books),
		Users:     handler.NewUserHandler(users),
		Roles:     handler.NewRoleHandler(roles),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, cfg.JWTSecret, config.NewRedisClient())

	// The activity consumer reconnects on its own; a missing broker
	// only costs the activity log, never API availability.
	go queue.StartActivityConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
