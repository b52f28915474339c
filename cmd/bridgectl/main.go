// bridgectl is a CLI tool for exercising the bridge the way the partner system does.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	bridgectl mint [-ttl 5m]
//	bridgectl verify -token TOKEN
//	bridgectl send -bridge URL -directive NAME [-order ID] [-args JSON] [-file batch.json]
//	bridgectl health -bridge URL
//	bridgectl partner [-port 9090] [-fixtures file.json]
//
// Credentials come from INTEGRATION_ID, INTEGRATION_PUBLIC_KEY and
// INTEGRATION_SECRET_KEY unless overridden with -iid, -kid and -secret.
//
// Examples:
//
//	TOKEN=$(bridgectl mint -q)
//	bridgectl send -bridge http://localhost:8080 -directive health_check
//	bridgectl send -bridge http://localhost:8080 -directive update_available_shipping_rates -order 1001
//	bridgectl send -bridge http://localhost:8080 -file batch.json
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"orderbridge/internal/model"
	"orderbridge/internal/token"
)

var client = &http.Client{Timeout: 120 * time.Second}

// Global flags (apply to all commands)
var (
	bridgeURL string
	namespace string
	quiet     bool
	noColor   bool
	verbose   bool
	creds     model.Credentials
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "mint":
		runMint(args)
	case "verify":
		runVerify(args)
	case "send":
		runSend(args)
	case "health":
		runHealth(args)
	case "partner":
		runPartner(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `bridgectl - order bridge test tool

Usage:
  bridgectl <command> [options]

Commands:
  mint      Mint a bearer token for the configured integration
  verify    Verify a token against the configured credentials
  send      Send a signed directive batch to the bridge
  health    Check bridge liveness
  partner   Run a local partner GraphQL endpoint that checks request signatures

Examples:
  # Mint a token and capture it
  TOKEN=$(bridgectl mint -q)

  # Round-trip the partner health check through the bridge
  bridgectl send -bridge http://localhost:8080 -directive health_check

  # Quote shipping for a partner order
  bridgectl send -bridge http://localhost:8080 -directive update_available_shipping_rates -order 1001

Run 'bridgectl <command> -h' for command-specific options.
`)
}

// credentialFlags registers -iid, -kid and -secret, defaulting to the environment.
func credentialFlags(fs *flag.FlagSet) {
	fs.StringVar(&creds.IntegrationID, "iid", os.Getenv("INTEGRATION_ID"), "Integration id")
	fs.StringVar(&creds.PublicKey, "kid", os.Getenv("INTEGRATION_PUBLIC_KEY"), "Public key (token kid)")
	fs.StringVar(&creds.SecretKey, "secret", os.Getenv("INTEGRATION_SECRET_KEY"), "Secret key")
}

// outputFlags registers the flags shared by every command.
func outputFlags(fs *flag.FlagSet) {
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the essential value")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
}

func parseFlags(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
}

func requireKeys() {
	if creds.PublicKey == "" || creds.SecretKey == "" {
		fatal("public key and secret key are required (-kid/-secret or INTEGRATION_* env vars)")
	}
}

// =============================================================================
// MINT COMMAND
// =============================================================================

func runMint(args []string) {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	credentialFlags(fs)
	outputFlags(fs)
	ttl := fs.Duration("ttl", token.DefaultTTL, "Token lifetime")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bridgectl mint [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)
	requireKeys()

	tok, err := token.New().Mint(creds, *ttl)
	if err != nil {
		fatal("Failed to mint token: %v", err)
	}

	if quiet {
		fmt.Println(tok)
		return
	}
	printSuccess("Token minted (expires in %s)", *ttl)
	fmt.Printf("  %s%s%s\n", colorCyan, tok, colorReset)
}

// =============================================================================
// VERIFY COMMAND
// =============================================================================

func runVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	credentialFlags(fs)
	outputFlags(fs)
	var tok string
	fs.StringVar(&tok, "token", "", "Token to verify (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bridgectl verify -token TOKEN [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)

	if tok == "" {
		fs.Usage()
		os.Exit(1)
	}

	footer, ok := token.DecodeFooter(tok)
	if !ok {
		fatal("Token has no footer")
	}
	kid, _ := token.FooterKeyID(footer)
	printInfo("Footer kid: %s", kid)

	requireKeys()
	claims, err := token.New().Verify(tok, creds)
	if err != nil {
		fatal("Token rejected: %v", err)
	}

	printSuccess("Token valid")
	fmt.Printf("  iid: %s\n", claims.IntegrationID)
	fmt.Printf("  iat: %s\n", claims.IssuedAt.Format(time.RFC3339))
	fmt.Printf("  exp: %s (%s left)\n", claims.Expiration.Format(time.RFC3339), time.Until(claims.Expiration).Round(time.Second))
	if verbose {
		printJSON(claims.Raw, "  ")
	}
}

// =============================================================================
// SEND COMMAND
// =============================================================================

func runSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	fs.StringVar(&bridgeURL, "bridge", "http://localhost:8080", "Bridge base URL")
	fs.StringVar(&namespace, "namespace", envOr("ROUTE_NAMESPACE", "orderbridge"), "Route namespace")
	credentialFlags(fs)
	outputFlags(fs)
	var name, orderID, argsJSON, file string
	fs.StringVar(&name, "directive", "", "Directive name (ignored with -file)")
	fs.StringVar(&orderID, "order", "", "Partner order id (args.order_id)")
	fs.StringVar(&argsJSON, "args", "", "Extra directive args as a JSON object")
	fs.StringVar(&file, "file", "", "Path to a {\"directives\": [...]} batch")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bridgectl send -directive NAME [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)
	requireKeys()

	var batch *model.DirectiveBatch
	var err error
	if file != "" {
		batch, err = loadBatch(file)
	} else if name != "" {
		batch, err = buildBatch(name, orderID, argsJSON)
	} else {
		fs.Usage()
		os.Exit(1)
	}
	if err != nil {
		fatal("Invalid batch: %v", err)
	}

	tok, err := token.New().Mint(creds, token.DefaultTTL)
	if err != nil {
		fatal("Failed to mint token: %v", err)
	}

	path := "/" + namespace + "/" + creds.IntegrationID
	respBody, err := doRequest("POST", path, tok, batch)
	if err != nil {
		fatal("Failed to send batch: %v", err)
	}

	var env model.ResultEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		fatal("Failed to parse results: %v", err)
	}
	printResults(env.Results)
}

// buildBatch creates a single-directive batch from flags.
func buildBatch(name, orderID, argsJSON string) (*model.DirectiveBatch, error) {
	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, fmt.Errorf("parsing -args: %w", err)
		}
	}
	if orderID != "" {
		args["order_id"] = orderID
	}
	if len(args) == 0 {
		args = nil
	}
	return &model.DirectiveBatch{Directives: []model.Directive{{
		ID:        fmt.Sprintf("cli-%d", time.Now().UnixMilli()),
		Directive: name,
		Args:      args,
	}}}, nil
}

// loadBatch reads a batch file.
func loadBatch(path string) (*model.DirectiveBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var batch model.DirectiveBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(batch.Directives) == 0 {
		return nil, fmt.Errorf("%s has no directives", path)
	}
	return &batch, nil
}

// =============================================================================
// HEALTH COMMAND
// =============================================================================

func runHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	fs.StringVar(&bridgeURL, "bridge", "http://localhost:8080", "Bridge base URL")
	outputFlags(fs)
	parseFlags(fs, args)

	if _, err := doRequest("GET", "/healthz", "", nil); err != nil {
		fatal("Bridge unhealthy: %v", err)
	}
	printSuccess("Bridge is up")
}

// =============================================================================
// HTTP
// =============================================================================

func doRequest(method, path, bearer string, body any) ([]byte, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(bridgeURL, "/")+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	if !quiet {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if !quiet {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, protocolError(respBody))
	}
	return respBody, nil
}

// protocolError renders an {"error": {code, message}} body, or the raw body.
func protocolError(body []byte) string {
	var e struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Code == "" {
		return strings.TrimSpace(string(body))
	}
	return e.Error.Code + " " + e.Error.Message
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}

	output := pretty.String()
	if !verbose {
		lines := strings.Split(output, "\n")
		if len(lines) > 30 {
			lines = append(lines[:25], fmt.Sprintf("%s  %s(%d more lines, use -v for full output)%s", prefix, colorGray, len(lines)-25, colorReset))
			output = strings.Join(lines, "\n")
		}
	}
	fmt.Println(output)
}

// printResults prints one line per directive result.
// In quiet mode only the statuses are printed, one per line.
func printResults(results []model.DirectiveResult) {
	for _, r := range results {
		if quiet {
			fmt.Println(r.Status)
			continue
		}
		line := fmt.Sprintf("%s %s: %s", r.SourceID, r.SourceDirective, r.Status)
		if r.OrderID != "" {
			line += " (order " + r.OrderID + ")"
		}
		switch statusKind(r.Status) {
		case "ok":
			printSuccess("%s", line)
		case "pending":
			printWarning("%s", line)
		default:
			printError("%s", line)
		}
	}
}

// statusKind groups result statuses for display.
func statusKind(status string) string {
	switch status {
	case model.StatusOK, model.StatusExists:
		return "ok"
	case model.StatusFuture:
		return "pending"
	default:
		return "error"
	}
}

func printSuccess(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printError(format string, args ...any) {
	fmt.Printf("%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

func printWarning(format string, args ...any) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
