// Package service contains the business logic of the quote funnel.
//
// THE LAYERS:
//
//	Handler (HTTP)      → parses forms, renders pages, sets cookies
//	Service (this pkg)  → validates, enforces ownership, orchestrates
//	Repository          → reads/writes the store
//
// Services accept plain values and return model types or apperror kinds.
// They never see an *http.Request, so every rule here is testable with
// plain function calls against in-memory fakes (see fakes_test.go).
//
// THE SERVICES:
//   - CatalogService   product listing and lookup, startup seeding
//   - IdentityService  resolve-or-create, register, authenticate, set password
//   - SessionGate      server-side sessions behind a signed cookie
//   - QuoteService     estimate + provision + session + calculation record
//   - BookingService   ownership-checked booking of a calculation
//   - AccountService   dashboard query and password change
package service
