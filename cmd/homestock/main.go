package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/sirupsen/logrus"

	"homestock/internal/app"
	"homestock/internal/auth"
	"homestock/internal/client"
	"homestock/internal/config"
	"homestock/internal/session"
)

const usage = `usage: homestock <command>

commands:
  login [username]   sign in and store the session
  register           create an account and sign in
  logout             forget the stored session
  whoami             show the signed-in user`

type cli struct {
	store *session.Store
	auth  *auth.Coordinator
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	// info chatter would interleave with the prompts
	logger.SetLevel(logrus.WarnLevel)
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil && level != logrus.InfoLevel {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, db, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open session storage: %v", err)
	}
	if db != nil {
		defer db.Close()
	}
	store, _, coord, err := app.NewAuth(cfg, kv, logger)
	if err != nil {
		logger.Fatalf("setup client: %v", err)
	}
	c := &cli{store: store, auth: coord}

	switch os.Args[1] {
	case "login":
		err = c.login(ctx, os.Args[2:])
	case "register":
		err = c.register(ctx)
	case "logout":
		c.auth.Logout(ctx)
		fmt.Println("signed out")
	case "whoami":
		err = c.whoami(ctx)
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		os.Exit(130)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *cli) login(ctx context.Context, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		var err error
		if username, err = ask("Username", false, notBlank); err != nil {
			return err
		}
	}
	password, err := ask("Password", true, notBlank)
	if err != nil {
		return err
	}

	user, err := c.auth.Login(ctx, client.Credentials{Username: username, Password: password})
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", user.Username)
	return nil
}

func (c *cli) register(ctx context.Context) error {
	username, err := ask("Username", false, notBlank)
	if err != nil {
		return err
	}
	email, err := ask("Email", false, func(s string) error {
		if !strings.Contains(s, "@") {
			return errors.New("not an email address")
		}
		return nil
	})
	if err != nil {
		return err
	}
	password, err := ask("Password", true, notBlank)
	if err != nil {
		return err
	}
	if _, err := ask("Repeat password", true, func(s string) error {
		if s != password {
			return errors.New("passwords do not match")
		}
		return nil
	}); err != nil {
		return err
	}

	user, err := c.auth.Register(ctx, client.Registration{Username: username, Email: email, Password: password})
	if err != nil {
		return err
	}
	fmt.Printf("account created, signed in as %s\n", user.Username)
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	c.auth.Start(ctx)
	if !c.auth.IsAuthenticated() {
		return errors.New("not signed in")
	}
	user := c.auth.User()
	fmt.Printf("%s <%s> (id %s)\n", user.Username, user.Email, user.ID)
	if sess, ok := c.store.Load(ctx); ok && !sess.ExpiresAt.IsZero() {
		fmt.Printf("session valid for %s\n", time.Until(sess.ExpiresAt).Round(time.Second))
	}
	return nil
}

func ask(label string, secret bool, validate promptui.ValidateFunc) (string, error) {
	prompt := promptui.Prompt{Label: label, Validate: validate}
	if secret {
		prompt.Mask = '*'
	}
	return prompt.Run()
}

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}
