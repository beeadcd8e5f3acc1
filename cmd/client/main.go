package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-match-client/internal/app"
	"github.com/jrsteele09/go-match-client/internal/config"
	"github.com/jrsteele09/go-match-client/internal/logging"
	"github.com/rs/zerolog"
)

const usage = `usage: match-client <command> [flags]

commands:
  login  -email <email> -password <password>   sign in and store credentials
  status                                        show whether a session is stored
  me                                            fetch the signed-in user's profile
  logout                                        remove stored credentials
`

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	c := config.New()
	logger := logging.New(os.Stderr, c.GetEnv(), c.GetLogLevel())

	if err := run(c, logger, os.Args[1:], os.Stdout); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func run(c config.Config, logger zerolog.Logger, args []string, out io.Writer) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(c, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing token store")
		}
	}()

	if err := a.Start(ctx); err != nil {
		return err
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "login":
		return login(ctx, a, c, rest, out)
	case "status":
		return status(a, out)
	case "me":
		return me(ctx, a, out)
	case "logout":
		a.Session.SignOut(ctx)
		fmt.Fprintln(out, "signed out")
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func login(ctx context.Context, a *app.App, c config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", config.GetEnv("MATCH_EMAIL", ""), "account email")
	password := fs.String("password", config.GetEnv("MATCH_PASSWORD", ""), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	displayAppname(out, c.GetAppName())
	if err := a.Session.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintf(out, "signed in as %s\n", a.Session.State().User.DisplayName())
	return nil
}

func status(a *app.App, out io.Writer) error {
	state := a.Session.State()
	if !state.IsSignedIn {
		fmt.Fprintln(out, "not signed in")
		return nil
	}
	fmt.Fprintf(out, "signed in as %s <%s>\n", state.User.DisplayName(), state.User.Email)
	return nil
}

func me(ctx context.Context, a *app.App, out io.Writer) error {
	if err := a.Session.RefreshUser(ctx); err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(a.Session.State().User)
}

func displayAppname(out io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(out, myFigure.String())
}
