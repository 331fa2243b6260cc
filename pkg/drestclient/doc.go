// Package drestclient provides the primary entry point for constructing
// a dynamic-rest API client that implements the drest.Client interface.
//
// It layers configuration, HTTP transport, and authentication on top of
// the resource API and types defined in the drest package. Most
// applications should import drestclient to build a client, then use the
// returned drest.Client to reach resources by name.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/dynamic-rest/drest-go/pkg/drest"
//	  "github.com/dynamic-rest/drest-go/pkg/drestclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Minimal: just an endpoint (no auth).
//	  cli, err := drestclient.New(ctx, &drest.Config{Endpoint: "https://api.example.com"})
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with a token you already have:
//	  cli, err = drestclient.NewWithToken(ctx, "https://api.example.com", "eyJhbGciOi...")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with username/password. The form login is deferred until the
//	  // first request; the session cookie it yields is reused afterwards.
//	  cli, err = drestclient.NewWithPassword(ctx, "https://api.example.com", "user", "pass")
//	  if err != nil { log.Fatal(err) }
//
//	  // Reach any resource by name and chain queries lazily.
//	  users, err := cli.Resource("users").Filter("is_active", true).Sort("-created").AllRecords(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = users
//	}
//
// # Authentication precedence
//
// When a Config carries more than one kind of credential, token wins
// over cookie, and cookie wins over username/password. A Config with no
// credentials produces a client that sends unauthenticated requests.
//
// # TLS and development mode
//
// For local development, you can set Config.SkipTLSVerify=true. This is
// gated by the environment variable DREST_DEV_MODE to avoid accidental
// insecure usage in production environments.
//
// # Helpers
//
// The package also provides the convenience constructors NewWithEndpoint,
// NewWithToken, NewWithCookie, and NewWithPassword; LoadConfig and
// LoadConfigFromEnv for viper-backed configuration; LoadMocksFile for
// YAML mock fixtures; and NewZerologLogger for structured logging.
package drestclient
