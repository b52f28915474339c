package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"orderbridge/internal/remote"
)

// maxSignatureAge bounds how old a signed request may be.
const maxSignatureAge = 5 * time.Minute

var operationPattern = regexp.MustCompile(`^\s*(?:query|mutation)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// defaultFixtures answer the calls every bridge makes at startup.
var defaultFixtures = map[string]json.RawMessage{
	"HealthCheck": json.RawMessage(`{"healthCheck":"ok"}`),
}

// runPartner serves a GraphQL endpoint that checks request signatures and
// answers each operation from a fixture file keyed by operation name.
func runPartner(args []string) {
	fs := flag.NewFlagSet("partner", flag.ExitOnError)
	credentialFlags(fs)
	outputFlags(fs)
	port := fs.String("port", "9090", "Port to listen on")
	fixturesPath := fs.String("fixtures", "", "JSON object mapping operation name to GraphQL data")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bridgectl partner [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)
	requireKeys()

	fixtures, err := loadFixtures(*fixturesPath)
	if err != nil {
		fatal("Failed to load fixtures: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /graphql", partnerHandler(creds.PublicKey, creds.SecretKey, fixtures))

	addr := ":" + *port
	printSuccess("Partner endpoint listening on http://localhost%s/graphql", addr)
	printInfo("Set PARTNER_GRAPHQL_ENDPOINT=http://localhost%s/graphql on the bridge", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		fatal("Server error: %v", err)
	}
}

// loadFixtures merges the fixture file over defaultFixtures.
func loadFixtures(path string) (map[string]json.RawMessage, error) {
	fixtures := make(map[string]json.RawMessage, len(defaultFixtures))
	for k, v := range defaultFixtures {
		fixtures[k] = v
	}
	if path == "" {
		return fixtures, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fromFile map[string]json.RawMessage
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for k, v := range fromFile {
		fixtures[k] = v
	}
	return fixtures, nil
}

func partnerHandler(kid, secret string, fixtures map[string]json.RawMessage) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			graphqlError(w, http.StatusBadRequest, "reading body")
			return
		}

		sig, err := remote.ParseSignature(r.Header.Get(remote.SignatureHeader))
		switch {
		case err != nil:
			graphqlError(w, http.StatusUnauthorized, err.Error())
			return
		case sig.KeyID != kid:
			graphqlError(w, http.StatusUnauthorized, "unknown kid "+sig.KeyID)
			return
		case !sig.Verify(secret, body):
			graphqlError(w, http.StatusUnauthorized, "signature mismatch")
			return
		case time.Since(sig.Timestamp) > maxSignatureAge:
			graphqlError(w, http.StatusUnauthorized, "signature expired")
			return
		}

		var req remote.Request
		if err := json.Unmarshal(body, &req); err != nil {
			graphqlError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		op := operationName(req.Query)
		printInfo("%s %s", op, remote.Excerpt(string(mustJSON(req.Variables))))

		data, ok := fixtures[op]
		if !ok {
			printWarning("no fixture for %s", op)
			graphqlError(w, http.StatusOK, "no fixture for "+op)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]json.RawMessage{"data": data})
	})
}

// operationName returns the declared name of a GraphQL operation, or "anonymous".
func operationName(query string) string {
	if m := operationPattern.FindStringSubmatch(query); m != nil {
		return m[1]
	}
	return "anonymous"
}

func graphqlError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]string{{"message": message}},
	})
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
