package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/wfunc/sololeveling/network"
)

const heartbeatInterval = 20 * time.Second

type options struct {
	server string
	token  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "solo",
		Short:         "Command line client for the Solo Leveling tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8080", "API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("SOLO_TOKEN"), "bearer token (defaults to $SOLO_TOKEN)")

	root.AddCommand(
		newLoginCmd(opts),
		newDailyCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

func newLoginCmd(opts *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Token string `json:"token"`
			}
			body := map[string]string{"email": email, "password": password}
			if err := call(cmd.Context(), opts, http.MethodPost, "/auth/login", body, &res); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newDailyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Ensure today's daily quest and show it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var q struct {
				ID          string     `json:"id"`
				Title       string     `json:"title"`
				Status      string     `json:"status"`
				XPReward    int        `json:"xpReward"`
				ExpiresAt   *time.Time `json:"expiresAt"`
				Description string     `json:"description"`
			}
			if err := call(cmd.Context(), opts, http.MethodPost, "/quests/daily", nil, &q); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s [%s] %s\n", q.Title, q.Status, q.ID)
			fmt.Fprintf(out, "  %s\n", q.Description)
			fmt.Fprintf(out, "  reward: %d xp\n", q.XPReward)
			if q.ExpiresAt != nil {
				fmt.Fprintf(out, "  expires: %s\n", q.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream quest and level events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watch(ctx, opts, cmd.OutOrStdout())
		},
	}
}

func wsURL(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func watch(ctx context.Context, opts *options, out io.Writer) error {
	if opts.token == "" {
		return errors.New("a token is required; run login first")
	}
	target, err := wsURL(opts.server, opts.token)
	if err != nil {
		return err
	}
	c, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", opts.server, err)
	}
	conn := network.NewWSConnection(c)
	defer conn.Close()

	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.Send(network.MsgTypeHeartbeat, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		p, err := conn.ReadPacket()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if p.MsgID == network.MsgTypeHeartbeat {
			continue
		}
		var ev struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
			At      time.Time       `json:"at"`
		}
		if err := json.Unmarshal(p.Data, &ev); err != nil {
			fmt.Fprintf(out, "undecodable packet %d: %v\n", p.MsgID, err)
			continue
		}
		fmt.Fprintf(out, "%s %-22s %s\n", ev.At.Local().Format(time.TimeOnly), ev.Type, ev.Payload)
	}
}

func call(ctx context.Context, opts *options, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(opts.server, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.token)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Message)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
