package cas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ylabs/internal/common"
)

func TestLoginURLEscapesService(t *testing.T) {
	c := NewClient("https://secure.example.edu/cas/", nil)
	got := c.LoginURL("http://localhost:4000/cas?redirect=/home")
	want := "https://secure.example.edu/cas/login?service=http%3A%2F%2Flocalhost%3A4000%2Fcas%3Fredirect%3D%2Fhome"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestValidateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/serviceValidate" || r.URL.Query().Get("ticket") != "ST-1" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas">
  <cas:authenticationSuccess><cas:user>AB123</cas:user></cas:authenticationSuccess>
</cas:serviceResponse>`))
	}))
	defer server.Close()

	netid, err := NewClient(server.URL, server.Client()).Validate(context.Background(), "ST-1", "http://app/cas")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if netid != "ab123" {
		t.Fatalf("expected ab123, got %s", netid)
	}
}

func TestValidateFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas">
  <cas:authenticationFailure code="INVALID_TICKET">Ticket not recognized</cas:authenticationFailure>
</cas:serviceResponse>`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client()).Validate(context.Background(), "ST-2", "http://app/cas")
	if !common.Is(err, common.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestValidateMissingTicket(t *testing.T) {
	_, err := NewClient("http://unused", nil).Validate(context.Background(), "", "svc")
	if !common.Is(err, common.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
