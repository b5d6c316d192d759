package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendInvitation_Success(t *testing.T) {
	var got chatActionRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chats/sent-invitation" {
			t.Errorf("path = %s", r.URL.Path)
		}
		headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(ActionResponse{OK: true, Message: "Invitation sent"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token")
	if err := c.SendInvitation(context.Background(), 100, 777); err != nil {
		t.Fatalf("send invitation failed: %v", err)
	}

	if got.ChatID != 100 || got.TelegramUserID != 777 {
		t.Errorf("request body = %+v", got)
	}
	if auth := headers.Get("Authorization"); auth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", auth)
	}
	if headers.Get("Idempotence-Key") == "" {
		t.Error("missing Idempotence-Key header")
	}
}

func TestChatAction_LogicalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ActionResponse{OK: false, Message: "chat full"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.SendInvitation(context.Background(), 100, 777)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "chat full") {
		t.Errorf("error %q does not carry the backend message", err)
	}
}

func TestChatAction_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "user is an administrator of the chat"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.RemoveUser(context.Background(), 100, 777)
	if err == nil {
		t.Fatal("expected error from non-2xx response")
	}
	if errors.Is(err, ErrRejected) {
		t.Error("transport failure conflated with logical rejection")
	}
	if !strings.Contains(err.Error(), "user is an administrator of the chat") {
		t.Errorf("error %q does not carry the detail", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error %q does not carry the status", err)
	}
}

func TestVerifyWebApp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.InviteToken != "abc123XYZ0" || req.TelegramUserID != "777" {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(VerifyResponse{Success: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	verdict, err := c.VerifyWebApp(context.Background(), "abc123XYZ0", 777, "")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !verdict.Success {
		t.Error("verdict.Success = false")
	}
}

func TestGenerateInvite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/generate-invite" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"invite": "Zx9aBc12Qw"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	code, err := c.GenerateInvite(context.Background())
	if err != nil {
		t.Fatalf("generate invite failed: %v", err)
	}
	if code != "Zx9aBc12Qw" {
		t.Errorf("code = %q", code)
	}
}
