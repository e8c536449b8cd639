// Command devtoken provisions a user by email and prints a signed access
// token for it, standing in for the external session layer during local
// development.  With -court it also adds a court of that name when none
// exists, since courts are otherwise maintained outside the service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/courtshare/courtshare/internal/config"
	"github.com/courtshare/courtshare/internal/database"
	"github.com/courtshare/courtshare/internal/model"
	"github.com/courtshare/courtshare/internal/repository"
	"github.com/courtshare/courtshare/internal/utils"
)

func main() {
	email := flag.String("email", "", "user email (required)")
	name := flag.String("name", "", "optional profile name")
	court := flag.String("court", "", "optional court name to create")
	flag.Parse()
	if strings.TrimSpace(*email) == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := repository.NewUserRepo(db)
	u, err := users.FindOrCreateByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("user: %v", err)
	}
	if n := strings.TrimSpace(*name); n != "" {
		if err := users.UpdateProfile(ctx, u.ID, &n, nil); err != nil {
			log.Fatalf("profile: %v", err)
		}
	}

	if c := strings.TrimSpace(*court); c != "" {
		if err := ensureCourt(ctx, repository.NewCourtRepo(db), c); err != nil {
			log.Fatalf("court: %v", err)
		}
	}

	tok, err := utils.NewAccessToken(cfg.JWT.Secret, u.ID, u.Email, cfg.JWT.AccessTTLMin)
	if err != nil {
		log.Fatalf("token: %v", err)
	}
	fmt.Printf("user_id=%d\nexpires=%s\n%s\n", u.ID, tok.Exp.Format("2006-01-02T15:04:05Z07:00"), tok.Token)
}

func ensureCourt(ctx context.Context, courts *repository.CourtRepo, name string) error {
	all, err := courts.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range all {
		if strings.EqualFold(c.Name, name) {
			fmt.Printf("court_id=%d\n", c.ID)
			return nil
		}
	}
	c := model.Court{Name: name}
	if err := courts.Create(ctx, &c); err != nil {
		return err
	}
	fmt.Printf("court_id=%d\n", c.ID)
	return nil
}
