// Command exchangectl is the operator CLI for the exchange backend.
//
//	exchangectl migrate
//	exchangectl token   -user <profile-id> [-name <display name>] [-ttl 168h] [-secret ...]
//	exchangectl seed-rt -name "RT 03" -kelurahan "Cipete Utara" -kecamatan "Kebayoran Baru" [-admin <profile-id> -admin-name <name>]
//
// Database and secret settings come from the same environment (and .env) as
// the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/rtshare/exchange-backend/internal/auth"
	"github.com/rtshare/exchange-backend/internal/config"
	"github.com/rtshare/exchange-backend/internal/repo"
	"github.com/rtshare/exchange-backend/internal/services"
	"github.com/rtshare/exchange-backend/internal/sysutil"
)

const usage = "usage: exchangectl <migrate|token|seed-rt> [flags]"

func main() {
	_ = godotenv.Load()
	sysutil.SetupLogging(os.Getenv("LOG_LEVEL"), true, os.Stderr)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "migrate":
		err = cmdMigrate(ctx, os.Args[2:])
	case "token":
		err = cmdToken(os.Args[2:])
	case "seed-rt":
		err = cmdSeedRT(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("failed")
		os.Exit(1)
	}
}

func cmdMigrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := repo.Open(cfg)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db.WithContext(ctx)); err != nil {
		return err
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("schema up to date")
	return nil
}

func cmdToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "profile id to put in the subject (required)")
	name := fs.String("name", "", "display name claim")
	ttl := fs.Duration("ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	secret := fs.String("secret", "", "signing secret (defaults to JWT_SECRET)")
	_ = fs.Parse(args)

	if *user == "" {
		fs.Usage()
		return errors.New("-user is required")
	}
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = 7 * 24 * time.Hour
		if cfg, err := config.Load(); err == nil {
			lifetime = cfg.Auth.TokenTTL
		}
	}
	key := sysutil.FirstNonEmpty(*secret, os.Getenv("JWT_SECRET"))
	tok, err := auth.GenerateToken(key, *user, *name, lifetime)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func cmdSeedRT(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed-rt", flag.ExitOnError)
	name := fs.String("name", "", "RT name, e.g. \"RT 03 / RW 05\" (required)")
	kel := fs.String("kelurahan", "", "kelurahan (required)")
	kec := fs.String("kecamatan", "", "kecamatan (required)")
	admin := fs.String("admin", "", "profile id to enrol as the first admin")
	adminName := fs.String("admin-name", "", "display name for -admin when the profile is new")
	_ = fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := repo.Open(cfg)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	community := services.NewCommunityService(db)
	rt, err := community.CreateRT(ctx, *name, *kel, *kec)
	if err != nil {
		return fmt.Errorf("create RT: %w", err)
	}
	log.Info().Str("rt_id", rt.ID).Str("name", rt.Name).Msg("RT created")

	if *admin == "" {
		return nil
	}
	if _, err := community.Profile(ctx, *admin); errors.Is(err, services.ErrProfileNotFound) {
		if _, err := community.UpsertProfile(ctx, *admin, sysutil.FirstNonEmpty(*adminName, *admin), ""); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
	} else if err != nil {
		return err
	}
	m, err := community.Join(ctx, *admin, rt.ID)
	if err != nil {
		return fmt.Errorf("enrol admin: %w", err)
	}
	log.Info().Str("member_id", m.ID).Str("role", string(m.Role)).Msg("admin enrolled")
	return nil
}
