package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-prompt-client/accounts"
	"github.com/jrsteele09/go-prompt-client/authflow"
	"github.com/jrsteele09/go-prompt-client/bootstrap"
	"github.com/jrsteele09/go-prompt-client/identity"
	"github.com/jrsteele09/go-prompt-client/identity/oidcclient"
	"github.com/jrsteele09/go-prompt-client/internal/config"
	"github.com/jrsteele09/go-prompt-client/prompt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	client, err := oidcclient.New(oidcclient.Config{
		IssuerURL:    c.GetIssuerURL(),
		ClientID:     c.GetClientID(),
		RedirectPort: c.GetRedirectPort(),
		Scopes:       c.GetScopes(),
		CacheDir:     c.GetCacheDir(),
	})
	if err != nil {
		return err
	}

	store := accounts.NewStore()
	orch, err := authflow.New(client, store, c.GetScopes())
	if err != nil {
		return err
	}

	ctx := context.Background()

	// The startup handler must finish before anything renders. An
	// initialization failure is fatal for this run; there is no retry.
	if err := bootstrap.Run(ctx, client, store, orch); err != nil {
		return errors.Wrap(err, "could not start: sign-in is unavailable")
	}

	if active, ok := store.Active(); ok {
		log.Info().Str("username", active.Username).Msg("signed in as")
	}

	switch {
	case len(args) > 0 && args[0] == "login":
		return login(ctx, orch)
	case len(args) > 0 && args[0] == "logout":
		return orch.Logout(ctx)
	default:
		return submit(ctx, c, orch, strings.Join(args, " "))
	}
}

func login(ctx context.Context, orch *authflow.Orchestrator) error {
	err := orch.Login(ctx)
	if errors.Is(err, identity.RedirectStartedErr) {
		fmt.Println("Sign-in continues in your browser. Run this command again once you have finished.")
		return nil
	}
	return err
}

func submit(ctx context.Context, c config.Config, orch *authflow.Orchestrator, text string) error {
	if text == "" {
		text = readPrompt()
	}

	client, err := prompt.NewClient(prompt.Config{
		BaseURL:    c.GetAPIBaseURL(),
		PromptPath: c.GetPromptPath(),
		DebugPath:  c.GetDebugPath(),
		Timeout:    c.GetHTTPTimeout(),
	}, orch, c.GetScopes())
	if err != nil {
		return err
	}

	outcome := client.Submit(ctx, text)
	switch outcome.Kind {
	case prompt.OutcomeSuccess:
		for _, line := range outcome.Lines() {
			fmt.Println(line)
		}
		return nil
	case prompt.OutcomeSkipped:
		fmt.Println("Nothing submitted: the prompt was empty.")
		return nil
	default:
		return errors.New(outcome.Message())
	}
}

func readPrompt() string {
	fmt.Print("Enter your prompt: ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return ""
	}
	return scanner.Text()
}

func setupLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
