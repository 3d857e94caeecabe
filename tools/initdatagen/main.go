// Package main prints signed init data for a bot token so the API can be
// exercised with curl without a Telegram client.
//
//	initdatagen -token $BOT_TOKEN -id 42 -username bug -score 100
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Otar989/bugman-bot/internal/initdata"
	"github.com/Otar989/bugman-bot/internal/models"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, time.Now); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// params describes the user embedded in the generated payload.
type params struct {
	token     string
	user      models.TelegramUser
	authDate  int64
	queryID   string
	withScore bool
	score     int64
}

func run(args []string, out io.Writer, now func() time.Time) error {
	p, err := parseArgs(args, now)
	if err != nil {
		return err
	}

	raw, err := generate(p)
	if err != nil {
		return err
	}

	if !p.withScore {
		_, err = fmt.Fprintln(out, raw)
		return err
	}
	// Ready-to-post body for POST /score.
	return json.NewEncoder(out).Encode(map[string]any{"initData": raw, "score": p.score})
}

func parseArgs(args []string, now func() time.Time) (params, error) {
	var p params
	fs := flag.NewFlagSet("initdatagen", flag.ContinueOnError)
	fs.StringVar(&p.token, "token", os.Getenv("BOT_TOKEN"), "bot token used to sign (default $BOT_TOKEN)")
	fs.Int64Var(&p.user.ID, "id", 42, "telegram user id")
	fs.StringVar(&p.user.Username, "username", "", "telegram username")
	fs.StringVar(&p.user.FirstName, "first-name", "", "first name")
	fs.Int64Var(&p.authDate, "auth-date", 0, "unix auth_date (default now)")
	fs.StringVar(&p.queryID, "query-id", "", "optional query_id")
	score := fs.String("score", "", "print a POST /score body with this score")
	if err := fs.Parse(args); err != nil {
		return params{}, err
	}

	if p.authDate == 0 {
		p.authDate = now().Unix()
	}
	if *score != "" {
		v, err := strconv.ParseInt(*score, 10, 64)
		if err != nil {
			return params{}, fmt.Errorf("invalid -score: %w", err)
		}
		p.withScore, p.score = true, v
	}
	return p, nil
}

func generate(p params) (string, error) {
	if p.token == "" {
		return "", errors.New("a bot token is required (-token or BOT_TOKEN)")
	}
	if p.user.ID == 0 {
		return "", errors.New("user id must not be zero")
	}

	user, err := json.Marshal(p.user)
	if err != nil {
		return "", err
	}

	fields := map[string]string{
		"auth_date": strconv.FormatInt(p.authDate, 10),
		"user":      string(user),
	}
	if p.queryID != "" {
		fields["query_id"] = p.queryID
	}
	return initdata.Encode(fields, p.token), nil
}
