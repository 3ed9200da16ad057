package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCallbackHandler(t *testing.T) {
	t.Run("ValidCallbackForwardsQuery", func(t *testing.T) {
		handler := NewCallbackHandler("state-token")
		req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=state-token", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Signed In") {
			t.Error("expected the success page")
		}

		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Query.Get("code") != "auth-code" {
			t.Errorf("expected the code forwarded, got %q", result.Query.Get("code"))
		}
	})

	t.Run("StateMismatchRejected", func(t *testing.T) {
		handler := NewCallbackHandler("state-token")
		req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=forged", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Fatal("expected a state validation error")
		}
	})

	t.Run("UserDenialShowsCancelledPage", func(t *testing.T) {
		handler := NewCallbackHandler("state-token")
		req := httptest.NewRequest(http.MethodGet, "/callback?error=access_denied&state=state-token", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Cancelled") {
			t.Error("expected the cancelled page")
		}

		result := <-handler.Result()
		if result.Query.Get("error") != "access_denied" {
			t.Errorf("expected the denial forwarded, got %v", result.Query)
		}
	})

	t.Run("SecondCallbackRejected", func(t *testing.T) {
		handler := NewCallbackHandler("state-token")

		first := httptest.NewRequest(http.MethodGet, "/callback?code=one&state=state-token", nil)
		handler.ServeHTTP(httptest.NewRecorder(), first)

		second := httptest.NewRequest(http.MethodGet, "/callback?code=two&state=state-token", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, second)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for a replayed callback, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "already processed") {
			t.Errorf("unexpected body %q", rec.Body.String())
		}

		result := <-handler.Result()
		if result.Query.Get("code") != "one" {
			t.Errorf("the first callback wins, got %q", result.Query.Get("code"))
		}
	})

	t.Run("ResultChannelCloses", func(t *testing.T) {
		handler := NewCallbackHandler("state-token")
		req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=state-token", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		<-handler.Result()
		if _, open := <-handler.Result(); open {
			t.Error("channel should close after the single result")
		}
	})

	t.Run("Routes", func(t *testing.T) {
		handler := NewCallbackHandler("state-token")
		routes := handler.Routes()
		if len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("MethodFiltering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("MiddlewareOrder", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		want := []string{"first", "second", "handler"}
		for i, name := range want {
			if i >= len(order) || order[i] != name {
				t.Fatalf("expected order %v, got %v", want, order)
			}
		}
	})

	t.Run("HandlerRegistersRoutes", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handler(NewCallbackHandler("state-token"))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=c&state=state-token", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected the callback route registered, got %d", rec.Code)
		}
	})
}
