// Package drest provides types, interfaces, and helpers for working with
// dynamic REST APIs.
//
// # Overview
//
// The drest package defines the value types (Fields, Record, Meta) and the
// interfaces for resource-oriented access (Client, ResourceAPI). A concrete
// implementation is provided by the drestclient package, which wires
// configuration, transport, and authentication. Most consumers should import
// drestclient to construct a client and then interact with the interfaces
// exposed here.
//
// Getting a client
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
//	  cli, err := drestclient.New(&drest.Config{Endpoint: "https://api.example.com"})
//	  if err != nil { log.Fatal(err) }
//
//	  // List the first page of users
//	  users, err := cli.Resource("users").List(ctx, drest.NewQueryParams().WithPerPage(50))
//	  if err != nil { log.Fatal(err) }
//	  _ = users
//	}
//
// # Queries and pagination
//
// Resource handles seed lazy queries. Chaining methods (Filter, Exclude,
// Sort, Including, Excluding) accumulate parameters without touching the
// network; only terminal methods (AllRecords, First, GetByID, MapBy, Count)
// issue requests:
//
//	active, err := cli.Resource("users").
//	  Filter("groups__name", "admin").
//	  Exclude("status", "inactive").
//	  Sort("-created_at").
//	  AllRecords(ctx)
//
// AllRecords walks every page transparently. Lower-level iteration is
// available too:
//
//	it := drest.NewPageIterator(ctx, cli.Resource("users"), nil)
//	for it.HasNext() {
//	  page, err := it.Next()
//	  if err != nil { break }
//	  _ = page
//	}
//
// # Records
//
// Record is a mutable field map bound to its resource. Save creates or
// updates depending on whether the record carries an id; Reload and Delete
// round-trip by id:
//
//	user := cli.Resource("users").NewRecord(drest.Fields{"name": "ada"})
//	if err := user.Save(ctx); err != nil { /* handle error */ }
//
// # Errors
//
// Failed operations wrap one of four sentinel kinds: ErrAuthenticationFailed
// (401), ErrDoesNotExist (404 and empty First), ErrBadRequest (other non-2xx)
// and ErrProtocol (responses the client cannot make sense of). Helpers such
// as IsNotFound and IsAuthenticationFailed make it easy to branch on them.
//
// # Interceptors and caching
//
// The package includes generic building blocks such as request/response
// interceptors (for logging, auth headers, metrics, rate limiting, circuit
// breaking) and a pluggable Cache abstraction with memory and NATS KV
// backends. The drestclient package composes these pieces for a sensible
// default client; applications with advanced needs can also use these
// primitives directly.
//
// # Mocks
//
// Every client carries a MockSet. Registering records for a resource name
// short-circuits all operations on that resource to the registered data,
// which keeps tests free of HTTP plumbing:
//
//	cli.Mocks().Set("users", []drest.Fields{{"id": 1, "name": "ada"}})
package drest
