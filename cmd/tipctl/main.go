package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"tipchain/cmd/internal/passphrase"
	"tipchain/crypto"
	"tipchain/gateway/middleware"
)

const passphraseEnv = "TIP_KEYSTORE_PASSPHRASE"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("tipctl", flag.ContinueOnError)
	endpoint := global.String("gateway", envOr("TIP_GATEWAY_URL", "http://127.0.0.1:8080"), "gateway base URL")
	token := global.String("token", os.Getenv("TIP_TOKEN"), "bearer token for authenticated calls")
	if err := global.Parse(args); err != nil {
		return err
	}
	args = global.Args()
	if len(args) == 0 {
		printUsage(out)
		return nil
	}
	c := newClient(*endpoint, *token)
	command, rest := args[0], args[1:]

	switch command {
	case "keygen":
		return keygen(rest, out)
	case "address":
		return showAddress(rest, out)
	case "token":
		return issueToken(rest, out)
	case "platform":
		return get(ctx, c, out, "/v1/platform")
	case "stats":
		return get(ctx, c, out, "/v1/stats")
	case "creators":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		limit := fs.Int("limit", 0, "maximum creators to list")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return get(ctx, c, out, fmt.Sprintf("/v1/creators?limit=%d", *limit))
	case "creator":
		if len(rest) != 1 {
			return errors.New("usage: tipctl creator <handle>")
		}
		return get(ctx, c, out, "/v1/creators/"+url.PathEscape(rest[0]))
	case "agent":
		if len(rest) != 1 {
			return errors.New("usage: tipctl agent <address>")
		}
		return get(ctx, c, out, "/v1/agents/"+url.PathEscape(rest[0]))
	case "balance":
		if len(rest) != 1 {
			return errors.New("usage: tipctl balance <address>")
		}
		return get(ctx, c, out, "/v1/accounts/"+url.PathEscape(rest[0])+"/balance")
	case "events":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		typ := fs.String("type", "", "event type")
		tipper := fs.String("tipper", "", "tipper address")
		recipient := fs.String("recipient", "", "recipient address")
		after := fs.Uint64("after", 0, "only events with a higher sequence")
		limit := fs.Int("limit", 0, "maximum events")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		q := url.Values{}
		setIf(q, "type", *typ)
		setIf(q, "tipper", *tipper)
		setIf(q, "recipient", *recipient)
		if *after > 0 {
			q.Set("after", fmt.Sprint(*after))
		}
		if *limit > 0 {
			q.Set("limit", fmt.Sprint(*limit))
		}
		return get(ctx, c, out, "/v1/events?"+q.Encode())
	case "register-creator":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		handle := fs.String("handle", "", "creator handle")
		name := fs.String("name", "", "display name")
		avatar := fs.String("avatar", "", "avatar URI")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return send(ctx, c, out, "POST", "/v1/creators", map[string]string{"handle": *handle, "displayName": *name, "avatarUri": *avatar})
	case "update-creator":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		handle := fs.String("handle", "", "creator handle")
		name := fs.String("name", "", "new display name")
		avatar := fs.String("avatar", "", "new avatar URI")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		body := map[string]string{}
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "name":
				body["displayName"] = *name
			case "avatar":
				body["avatarUri"] = *avatar
			}
		})
		return send(ctx, c, out, "PATCH", "/v1/creators/"+url.PathEscape(*handle), body)
	case "register-agent":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		name := fs.String("name", "", "agent name")
		typ := fs.String("type", "", "agent type")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return send(ctx, c, out, "POST", "/v1/agents", map[string]string{"name": *name, "type": *typ})
	case "tip":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		handle := fs.String("handle", "", "creator handle")
		amount := fs.String("amount", "", "amount in base units")
		message := fs.String("message", "", "message for the creator")
		proof := fs.String("proof", "", "payment proof reference")
		agent := fs.String("agent", "", "attribute the tip to this agent")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return send(ctx, c, out, "POST", "/v1/tips", map[string]string{
			"handle": *handle, "amount": *amount, "message": *message, "paymentProof": *proof, "agent": *agent,
		})
	case "pause", "unpause":
		return send(ctx, c, out, "POST", "/v1/admin/pause", map[string]bool{"paused": command == "pause"})
	case "set-fee":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		bps := fs.Int("bps", -1, "platform fee in basis points")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return send(ctx, c, out, "POST", "/v1/admin/fee", map[string]int{"platformFeeBps": *bps})
	case "set-min-tip":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		amount := fs.String("amount", "", "minimum tip in base units")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return send(ctx, c, out, "POST", "/v1/admin/min-tip", map[string]string{"minTipAmount": *amount})
	case "faucet":
		return send(ctx, c, out, "POST", "/v1/dev/faucet", nil)
	default:
		printUsage(out)
		return fmt.Errorf("unknown command %q", command)
	}
}

func keygen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	path := fs.String("out", "tip.keystore", "keystore output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*path); err == nil {
		return fmt.Errorf("%s already exists", *path)
	}
	pass, err := passphrase.NewSource(passphraseEnv, "New keystore passphrase: ").Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*path, key, pass); err != nil {
		return err
	}
	fmt.Fprintf(out, "address: %s\nkeystore: %s\n", key.PubKey().Address().String(), *path)
	return nil
}

func loadKeystoreAddress(path string) ([20]byte, error) {
	pass, err := passphrase.NewSource(passphraseEnv, "").Get()
	if err != nil {
		return [20]byte{}, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return [20]byte{}, err
	}
	return key.PubKey().Address().Raw(), nil
}

func showAddress(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	path := fs.String("keystore", "tip.keystore", "keystore path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	addr, err := loadKeystoreAddress(*path)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, crypto.FromRaw(addr).String())
	return nil
}

// issueToken signs a development bearer token. The secret must match the
// gateway's auth.hmacSecret.
func issueToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	keystore := fs.String("keystore", "", "derive the subject from this keystore")
	address := fs.String("address", "", "subject address (instead of -keystore)")
	secretEnv := fs.String("secret-env", "TIP_GATEWAY_SECRET", "environment variable holding the HMAC secret")
	issuer := fs.String("issuer", "", "iss claim")
	audience := fs.String("audience", "", "aud claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var subject [20]byte
	switch {
	case strings.TrimSpace(*address) != "":
		raw, err := crypto.ParseAccount(*address)
		if err != nil {
			return err
		}
		subject = raw
	case strings.TrimSpace(*keystore) != "":
		raw, err := loadKeystoreAddress(*keystore)
		if err != nil {
			return err
		}
		subject = raw
	default:
		return errors.New("either -address or -keystore is required")
	}
	secret := os.Getenv(*secretEnv)
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("%s is not set", *secretEnv)
	}
	token, err := middleware.IssueToken(secret, subject, *issuer, *audience, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func get(ctx context.Context, c *client, out io.Writer, path string) error {
	return send(ctx, c, out, "GET", path, nil)
}

func send(ctx context.Context, c *client, out io.Writer, method, path string, body interface{}) error {
	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		_, err = out.Write(data)
		return err
	}
	pretty.WriteByte('\n')
	_, err = out.Write(pretty.Bytes())
	return err
}

func setIf(q url.Values, key, value string) {
	if strings.TrimSpace(value) != "" {
		q.Set(key, value)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `Usage: tipctl [-gateway URL] [-token JWT] <command> [flags]

Keys:
  keygen -out PATH                 create an encrypted keystore
  address -keystore PATH           print the keystore's address
  token -address ADDR|-keystore P  sign a development bearer token

Queries:
  platform | stats
  creators [-limit N] | creator HANDLE
  agent ADDR | balance ADDR
  events [-type T] [-tipper A] [-recipient A] [-after SEQ] [-limit N]

Transactions (need -token):
  register-creator -handle H -name N [-avatar URI]
  update-creator -handle H [-name N] [-avatar URI]
  register-agent -name N [-type T]
  tip -handle H -amount A [-message M] [-proof P] [-agent ADDR]
  pause | unpause | set-fee -bps N | set-min-tip -amount A
  faucet`)
}
