// Package server provides the temporary localhost HTTP server used during sign-in.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [CallbackHandler] receives the authorization-code redirect. It validates the
// state parameter (CSRF protection) and forwards the redirect query through a
// channel; the code exchange itself happens in the services package, which
// holds the PKCE verifier.
//
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// When the user runs `nook auth login`, a temporary HTTP server starts on the
// configured host/port, handles the callback, and shuts down once the result
// is delivered or the login times out.
package server
