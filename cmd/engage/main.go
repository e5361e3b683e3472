// Command engage is a terminal client for the engagement core. It opens the
// database in-process, signs in through the local identity provider and
// drives a client session the same way a screen would: the profile is
// resolved on sign-in, then the requested view is printed as JSON.
//
// Usage:
//
//	engage [-email E -password P] <command> [flags]
//
// Commands:
//
//	signup -name N          create the account, print the session
//	profile                 print the signed-in session and profile
//	feed [-limit N]         unified activity feed
//	recommend [-limit N]    recommendations filtered by interest area
//	matches [-limit N]      newest opportunities, scored
//	add-opportunity -title T [-area A] [-date 2025-06-07] [-location L]
//
// Configuration comes from the same environment as the server (DB_PATH,
// JWT_SECRET, LOG_LEVEL, ACTIVITY_PLACEHOLDERS).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/engage/internal/auth"
	"github.com/sakif/engage/internal/config"
	"github.com/sakif/engage/internal/identity"
	"github.com/sakif/engage/internal/model"
	sqliteRepo "github.com/sakif/engage/internal/repository/sqlite"
	"github.com/sakif/engage/internal/service"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "engage:", err)
		os.Exit(1)
	}
}

// app is everything a command can reach.
type app struct {
	db       *sqliteRepo.DB
	provider *identity.Local
	session  *service.Session
	matches  *service.MatchService
	feed     *service.ActivityService
	out      io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("engage", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	a, err := newApp(cfg, logger, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	switch cmd {
	case "add-opportunity":
		return a.addOpportunity(ctx, cmdArgs)
	case "signup":
		sub := flag.NewFlagSet("signup", flag.ContinueOnError)
		sub.SetOutput(stderr)
		name := sub.String("name", "", "display name")
		if err := sub.Parse(cmdArgs); err != nil {
			return err
		}
		if _, err := a.provider.SignUp(ctx, *email, *password, *name); err != nil {
			return err
		}
		return a.printSession()
	case "profile", "feed", "recommend", "matches":
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	sub := flag.NewFlagSet(cmd, flag.ContinueOnError)
	sub.SetOutput(stderr)
	limit := sub.Int("limit", 0, "maximum number of results (0 = default)")
	if err := sub.Parse(cmdArgs); err != nil {
		return err
	}

	if _, err := a.provider.SignIn(ctx, *email, *password); err != nil {
		return err
	}
	st, err := a.awaitProfile()
	if err != nil {
		return err
	}

	switch cmd {
	case "profile":
		return a.print(st)
	case "feed":
		f, err := a.feed.GetUserActivities(ctx, st.Identity.ID, *limit)
		if err != nil {
			return err
		}
		return a.print(f)
	case "recommend":
		r, err := a.matches.GetRecommendedOpportunities(ctx, st.Identity.ID, *limit)
		if err != nil {
			return err
		}
		return a.print(r)
	default: // matches
		r, err := a.matches.MatchOpportunities(ctx, st.Identity.ID, *limit)
		if err != nil {
			return err
		}
		return a.print(r)
	}
}

func newApp(cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, err
	}

	accounts := service.NewAuthService(db, tokens, auth.NewPasswordService(), logger)
	provider := identity.NewLocal(accounts, logger)
	session := service.NewSession(provider, service.NewProfileService(db, logger), logger)
	session.Attach()

	return &app{
		db:       db,
		provider: provider,
		session:  session,
		matches:  service.NewMatchService(db, db, logger),
		feed:     service.NewActivityService(db, logger, service.WithPlaceholders(cfg.ActivityPlaceholders)),
		out:      out,
	}, nil
}

// close signs out, which preempts any resolution still in flight, then
// waits for it before the database goes away.
func (a *app) close() {
	_ = a.provider.SignOut(context.Background())
	a.session.Wait()
	a.session.Detach()
	a.db.Close()
}

// awaitProfile waits for the sign-in to settle into Authenticated or
// ProfileError.
func (a *app) awaitProfile() (service.SessionState, error) {
	a.session.Wait()
	st := a.session.State()
	if st.Status == service.ProfileError {
		return st, fmt.Errorf("loading profile: %s", st.Reason)
	}
	if st.Status != service.Authenticated {
		return st, fmt.Errorf("unexpected session state %s", st.Status)
	}
	return st, nil
}

func (a *app) printSession() error {
	st, err := a.awaitProfile()
	if err != nil {
		return err
	}
	return a.print(st)
}

func (a *app) addOpportunity(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-opportunity", flag.ContinueOnError)
	title := fs.String("title", "", "title (required)")
	area := fs.String("area", "", "interest area")
	location := fs.String("location", "", "location")
	date := fs.String("date", "", "date, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *title == "" {
		return errors.New("add-opportunity: -title is required")
	}

	o := &model.Opportunity{Title: *title, InterestArea: *area, Location: *location}
	if *date != "" {
		d, err := time.Parse(time.DateOnly, *date)
		if err != nil {
			return fmt.Errorf("add-opportunity: invalid -date: %w", err)
		}
		o.Date = &d
	}
	if err := a.db.CreateOpportunity(ctx, o); err != nil {
		return err
	}
	return a.print(o)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
