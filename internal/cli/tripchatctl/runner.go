// Package tripchatctl implements the command-line client for the tripchat
// HTTP API.
package tripchatctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	SessionID  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("tripchatctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8000"), "tripchat API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	sessionID := fs.String("session", defaults.SessionID, "Session ID for conversational context (ask)")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout (e.g. 60s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	method := ""
	path := ""
	var body any
	switch command {
	case "health":
		method, path = http.MethodGet, "/v1/health"
	case "ready":
		method, path = http.MethodGet, "/v1/ready"
	case "schema":
		method, path = http.MethodGet, "/v1/schema"
	case "stats":
		method, path = http.MethodGet, "/v1/dataset/stats"
	case "ask":
		question := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
		if question == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question")
			return 2
		}
		method, path = http.MethodPost, "/v1/chat"
		payload := map[string]any{"message": question}
		if id := strings.TrimSpace(*sessionID); id != "" {
			payload["session_id"] = id
		}
		body = payload
	case "sessions":
		if fs.NArg() < 2 {
			_, _ = fmt.Fprintln(stderr, "sessions requires a subcommand: list, show, delete")
			return 2
		}
		switch sub := strings.TrimSpace(fs.Arg(1)); sub {
		case "list":
			method, path = http.MethodGet, "/v1/sessions"
		case "show", "delete":
			if fs.NArg() < 3 {
				_, _ = fmt.Fprintf(stderr, "sessions %s requires a session id\n", sub)
				return 2
			}
			id := strings.TrimSpace(fs.Arg(2))
			path = "/v1/sessions/" + url.PathEscape(id)
			method = http.MethodGet
			if sub == "delete" {
				method = http.MethodDelete
			}
		default:
			_, _ = fmt.Fprintf(stderr, "unknown sessions subcommand %q\n\n", sub)
			writeUsage(stderr)
			return 2
		}
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: tripchatctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  ask <question>        POST /v1/chat (use -session for follow-ups)")
	_, _ = fmt.Fprintln(w, "  sessions list         GET /v1/sessions")
	_, _ = fmt.Fprintln(w, "  sessions show <id>    GET /v1/sessions/{id}")
	_, _ = fmt.Fprintln(w, "  sessions delete <id>  DELETE /v1/sessions/{id}")
	_, _ = fmt.Fprintln(w, "  schema                GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  stats                 GET /v1/dataset/stats")
	_, _ = fmt.Fprintln(w, "  health                GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                 GET /v1/ready")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
