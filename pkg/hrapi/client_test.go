package hrapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestFetchGallery(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/auth/cache" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
				t.Errorf("expected bearer token, got %q", got)
			}
			json.NewEncoder(w).Encode([]Person{
				{Email: "a@x.com", Name: "Alice", Embedding: []float64{0.1, 0.2}},
				{Email: "b@x.com", Name: "Bob"},
			})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, 5*time.Second)
		client.SetToken("tok123")

		people, err := client.FetchGallery(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(people) != 2 {
			t.Fatalf("expected 2 people, got %d", len(people))
		}
		if people[0].Email != "a@x.com" || len(people[0].Embedding) != 2 {
			t.Errorf("unexpected first person: %+v", people[0])
		}
		if len(people[1].Embedding) != 0 {
			t.Errorf("expected Bob without embedding, got %+v", people[1])
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, 5*time.Second)
		if _, err := client.FetchGallery(context.Background()); err == nil {
			t.Error("expected an error for a 5xx response")
		}
	})
}

func TestLookupUser(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("email"); got != "a@x.com" {
				t.Errorf("unexpected email param: %q", got)
			}
			json.NewEncoder(w).Encode([]Person{{Email: "a@x.com", Name: "Alice A."}})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, 5*time.Second)
		person, err := client.LookupUser(context.Background(), "a@x.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if person == nil || person.Name != "Alice A." {
			t.Errorf("unexpected person: %+v", person)
		}
	})

	t.Run("NotFoundIsNil", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]Person{})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, 5*time.Second)
		person, err := client.LookupUser(context.Background(), "ghost@x.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if person != nil {
			t.Errorf("expected nil for an unknown user, got %+v", person)
		}
	})
}

func TestRecordAttendance(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var got Record
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/attendance/check-in-out" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("bad body: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, 5*time.Second)
		err := client.RecordAttendance(context.Background(), Record{
			Email: "a@x.com",
			Type:  CheckIn,
			Photo: "base64-jpeg",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Email != "a@x.com" || got.Type != CheckIn {
			t.Errorf("unexpected record on the wire: %+v", got)
		}
	})

	t.Run("Rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "duplicate", http.StatusConflict)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, 5*time.Second)
		err := client.RecordAttendance(context.Background(), Record{Email: "a@x.com", Type: CheckOut})
		if !errors.Is(err, ErrRecordingFailed) {
			t.Errorf("expected ErrRecordingFailed, got %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["email"] != "kiosk@x.com" || req["password"] != "secret" {
			t.Errorf("unexpected credentials: %v", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "issued-token"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	token, err := client.Login(context.Background(), "kiosk@x.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "issued-token" {
		t.Errorf("unexpected token: %q", token)
	}
	if client.token != "issued-token" {
		t.Error("login must set the client token")
	}
}

func TestDecodeClaims(t *testing.T) {
	t.Run("EmailClaim", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			Email: "a@x.com",
			Role:  "employee",
		}).SignedString([]byte("test-key"))
		if err != nil {
			t.Fatal(err)
		}

		claims, err := DecodeClaims(signed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		identity, err := claims.Identity()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if identity != "a@x.com" {
			t.Errorf("unexpected identity: %q", identity)
		}
		if claims.Role != "employee" {
			t.Errorf("unexpected role: %q", claims.Role)
		}
	})

	t.Run("UsernameFallback", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			Username: "alice",
		}).SignedString([]byte("test-key"))
		if err != nil {
			t.Fatal(err)
		}

		claims, err := DecodeClaims(signed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		identity, err := claims.Identity()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if identity != "alice" {
			t.Errorf("unexpected identity: %q", identity)
		}
	})

	t.Run("NoIdentity", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("test-key"))
		if err != nil {
			t.Fatal(err)
		}

		claims, err := DecodeClaims(signed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := claims.Identity(); err == nil {
			t.Error("expected an error for a token without identity claims")
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := DecodeClaims("not-a-jwt"); err == nil {
			t.Error("expected an error for a malformed token")
		}
	})
}
