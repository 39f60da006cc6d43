package httpc

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostSendsBody(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		got = string(data)
	}))
	defer srv.Close()

	resp, err := Post(srv.URL, "text/plain", []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got != "hello" {
		t.Errorf("server received %q", got)
	}
}

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			if r.Header.Get("Content-Type") != "application/json" {
				w.WriteHeader(http.StatusUnsupportedMediaType)
				return
			}
			io.Copy(w, r.Body)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"missing"}`))
		}
	}))
	defer srv.Close()

	type payload struct {
		N int `json:"n"`
	}
	var out payload
	if err := DoJSON(context.Background(), nil, http.MethodPost, srv.URL+"/echo", payload{N: 3}, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.N != 3 {
		t.Errorf("out.N = %d", out.N)
	}

	err := DoJSON(context.Background(), nil, http.MethodGet, srv.URL+"/nope", nil, &out)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 StatusError", err)
	}
}

func TestDoJSON_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := DoJSON(ctx, nil, http.MethodGet, "http://127.0.0.1:1/", nil, nil); err == nil {
		t.Error("cancelled request succeeded")
	}
}
