package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/bookwyrm-admin/internal/models"
	"github.com/noah-isme/bookwyrm-admin/internal/service"
	"github.com/noah-isme/bookwyrm-admin/pkg/config"
)

func main() {
	app := kingpin.New("admin-token", "Issue a signed access token for the instance administration pages")
	envFile := app.Flag("env-file", "Path to the deployment .env file").Default(config.DefaultEnvFile).String()
	userID := app.Flag("user-id", "User identifier carried in the token").Required().String()
	username := app.Flag("username", "Username carried in the token").Default("admin").String()
	role := app.Flag("role", "Role granted by the token").Default(string(models.RoleAdmin)).
		Enum(string(models.RoleAdmin), string(models.RoleModerator), string(models.RoleEditor), string(models.RoleUser))
	ttl := app.Flag("ttl", "Token lifetime").Default("1h").Duration()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.LoadFile(*envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	authSvc := service.NewAuthService(zap.NewNop(), service.AuthConfig{
		AccessTokenSecret: cfg.Security.SecretKey,
		Issuer:            cfg.Security.Domain,
	})
	token, expiresAt, err := authSvc.IssueToken(*userID, *username, models.UserRole(*role), *ttl)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "token for %s (%s) expires at %s\n", *username, *role, expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
