// ABOUTME: Admin CLI for studio-gateway catalog and session management
// ABOUTME: Talks to the gateway HTTP API using the local-admin session flow

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

const banner = `
     _             _ _                      _           _
 ___| |_ _   _  __| (_) ___          __ _  __| |_ __ ___ (_)_ __
/ __| __| | | |/ _' | |/ _ \ _____  / _' |/ _' | '_ ' _ \| | '_ \
\__ \ |_| |_| | (_| | | (_) |_____|| (_| | (_| | | | | | | | | | |
|___/\__|\__,_|\__,_|_|\___/        \__,_|\__,_|_| |_| |_|_|_| |_|
`

// sentinelLocalAdmin mirrors the gateway's local-admin credential marker.
const sentinelLocalAdmin = "local-admin-token"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("STUDIO_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	c := &client{
		baseURL: baseURL,
		token:   os.Getenv("STUDIO_TOKEN"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "health":
		err = cmdHealth(c)
	case "login":
		err = cmdLogin(c, args)
	case "me":
		err = cmdMe(c)
	case "products":
		err = cmdProducts(c, args)
	case "links":
		err = cmdLinks(c, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: studio-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  health                          Check gateway health")
	fmt.Println("  login <user> <password>         Log in and print a session token")
	fmt.Println("  me                              Show your identity")
	fmt.Println("  products                        List product design settings")
	fmt.Println("  products platform               List live platform products")
	fmt.Println("  products set <id> <json>        Create or update product settings")
	fmt.Println("  products delete <id>            Delete product settings")
	fmt.Println("  links                           List named links")
	fmt.Println("  links set <name> <target>       Create or update a link")
	fmt.Println("  links delete <name>             Delete a link")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  STUDIO_GATEWAY_URL   Gateway base URL (default: http://localhost:8080)")
	fmt.Println("  STUDIO_TOKEN         Session token from 'studio-admin login'")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  export STUDIO_TOKEN=$(studio-admin login admin secret)")
	fmt.Println("  studio-admin products set 42 '{\"name\":\"Classic Tee\",\"enabled\":true}'")
	fmt.Println("  studio-admin links set summer-sale /designs/abc123")
	fmt.Println()
}

// client is a minimal HTTP client for the gateway API.
type client struct {
	baseURL string
	token   string
	http    *http.Client
}

// do issues an authenticated request and decodes the JSON response into out.
func (c *client) do(method, path string, payload, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+sentinelLocalAdmin)
		req.Header.Set("X-Studio-Session", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func cmdHealth(c *client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	color.Green("healthy")
	return nil
}

func cmdLogin(c *client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: studio-admin login <user> <password>")
	}

	var result struct {
		Token     string `json:"token"`
		Role      string `json:"role"`
		ExpiresIn int64  `json:"expires_in"`
	}
	payload := map[string]string{"username": args[0], "password": args[1]}
	if err := c.do(http.MethodPost, "/api/login", payload, &result); err != nil {
		return err
	}

	// Token on stdout so it can be captured; details on stderr.
	fmt.Println(result.Token)
	fmt.Fprintf(os.Stderr, "role: %s, expires in %s\n", result.Role, time.Duration(result.ExpiresIn)*time.Second)
	return nil
}

func cmdMe(c *client) error {
	var me struct {
		ID     string `json:"id"`
		Role   string `json:"role"`
		Method string `json:"method"`
	}
	if err := c.do(http.MethodGet, "/api/me", nil, &me); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Println("Identity")
	cyan.Println("--------")
	fmt.Printf("ID:     %s\n", me.ID)
	fmt.Printf("Role:   %s\n", me.Role)
	fmt.Printf("Method: %s\n", me.Method)
	return nil
}

func cmdProducts(c *client, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		var products []struct {
			ProductID string `json:"product_id"`
			Name      string `json:"name"`
			Enabled   bool   `json:"enabled"`
			CanvasW   int    `json:"canvas_w"`
			CanvasH   int    `json:"canvas_h"`
		}
		if err := c.do(http.MethodGet, "/api/products", nil, &products); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tENABLED\tCANVAS")
		for _, p := range products {
			fmt.Fprintf(w, "%s\t%s\t%t\t%dx%d\n", p.ProductID, p.Name, p.Enabled, p.CanvasW, p.CanvasH)
		}
		return w.Flush()

	case "platform":
		var products []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Price string `json:"price"`
		}
		if err := c.do(http.MethodGet, "/api/products/platform", nil, &products); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPRICE")
		for _, p := range products {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Price)
		}
		return w.Flush()

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: studio-admin products set <id> <json>")
		}
		var settings map[string]any
		if err := json.Unmarshal([]byte(args[2]), &settings); err != nil {
			return fmt.Errorf("invalid settings JSON: %w", err)
		}
		if err := c.do(http.MethodPut, "/api/products/"+args[1], settings, nil); err != nil {
			return err
		}
		color.Green("saved product %s", args[1])
		return nil

	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: studio-admin products delete <id>")
		}
		if err := c.do(http.MethodDelete, "/api/products/"+args[1], nil, nil); err != nil {
			return err
		}
		color.Green("deleted product %s", args[1])
		return nil

	default:
		return fmt.Errorf("unknown products subcommand: %s", args[0])
	}
}

func cmdLinks(c *client, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		var links []struct {
			Name      string    `json:"name"`
			Target    string    `json:"target"`
			CreatedAt time.Time `json:"created_at"`
		}
		if err := c.do(http.MethodGet, "/api/links", nil, &links); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTARGET\tCREATED")
		for _, l := range links {
			fmt.Fprintf(w, "%s\t%s\t%s\n", l.Name, l.Target, l.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: studio-admin links set <name> <target>")
		}
		payload := map[string]string{"target": args[2]}
		if err := c.do(http.MethodPut, "/api/links/"+args[1], payload, nil); err != nil {
			return err
		}
		color.Green("saved link %s", args[1])
		return nil

	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: studio-admin links delete <name>")
		}
		if err := c.do(http.MethodDelete, "/api/links/"+args[1], nil, nil); err != nil {
			return err
		}
		color.Green("deleted link %s", args[1])
		return nil

	default:
		return fmt.Errorf("unknown links subcommand: %s", args[0])
	}
}
