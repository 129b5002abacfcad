package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// rpcTestServer answers /jsonrpc: authenticate returns uid 7, and execute_kw
// is handled by fn.
func rpcTestServer(t *testing.T, fn func(model, method string, args []any, kwargs map[string]any) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jsonrpc" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		var result any
		var rpcErr *rpcError
		switch req.Params.Service {
		case "common":
			result = 7
		case "object":
			model, _ := req.Params.Args[3].(string)
			method, _ := req.Params.Args[4].(string)
			args, _ := req.Params.Args[5].([]any)
			kwargs, _ := req.Params.Args[6].(map[string]any)
			result, rpcErr = fn(model, method, args, kwargs)
		default:
			t.Errorf("unexpected service %s", req.Params.Service)
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(url string) Client {
	return NewClient(Config{URL: url, Database: "books", Username: "svc", APIKey: "key"})
}

func TestSearchRead(t *testing.T) {
	var gotModel, gotMethod string
	var gotKwargs map[string]any
	srv := rpcTestServer(t, func(model, method string, args []any, kwargs map[string]any) (any, *rpcError) {
		gotModel, gotMethod, gotKwargs = model, method, kwargs
		return []map[string]any{
			{"id": 1, "name": "Sales", "company_id": []any{3, "Acme Ltd"}},
		}, nil
	})
	defer srv.Close()

	records, err := testClient(srv.URL).SearchRead(context.Background(), "account.account",
		[]Condition{Eq("active", true)}, []string{"id", "name", "company_id"},
		&SearchOpts{Limit: 10, Order: "code"})
	if err != nil {
		t.Fatal(err)
	}
	if gotModel != "account.account" || gotMethod != "search_read" {
		t.Errorf("called %s.%s", gotModel, gotMethod)
	}
	if gotKwargs["limit"] != float64(10) || gotKwargs["order"] != "code" {
		t.Errorf("kwargs = %v", gotKwargs)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Str("name") != "Sales" {
		t.Errorf("name = %q", records[0].Str("name"))
	}
	if id, name := records[0].Many2One("company_id"); id != 3 || name != "Acme Ltd" {
		t.Errorf("company = %d %q", id, name)
	}
}

func TestCreateAndExec(t *testing.T) {
	srv := rpcTestServer(t, func(model, method string, args []any, kwargs map[string]any) (any, *rpcError) {
		switch method {
		case "create":
			return 42, nil
		case "action_post":
			return true, nil
		}
		t.Errorf("unexpected method %s", method)
		return nil, nil
	})
	defer srv.Close()

	c := testClient(srv.URL)
	id, err := c.Create(context.Background(), "account.move", map[string]any{"ref": "X"})
	if err != nil {
		t.Fatal(err)
	}
	if id != 42 {
		t.Errorf("id = %d", id)
	}
	if err := c.Exec(context.Background(), "account.move", "action_post", []int{42}); err != nil {
		t.Fatal(err)
	}
}

func TestRemoteFaultPreservesMessage(t *testing.T) {
	srv := rpcTestServer(t, func(model, method string, args []any, kwargs map[string]any) (any, *rpcError) {
		e := &rpcError{Message: "Odoo Server Error"}
		e.Data.Message = "You cannot post an entry in a locked period"
		e.Data.Debug = "Traceback (most recent call last): ..."
		return nil, e
	})
	defer srv.Close()

	_, err := testClient(srv.URL).SearchRead(context.Background(), "account.move", nil, []string{"id"}, nil)
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("expected Fault, got %v", err)
	}
	if fault.Message != "You cannot post an entry in a locked period" {
		t.Errorf("message = %q", fault.Message)
	}
}

func TestAuthenticateRejectedCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The remote reports failed auth as a false uid, not an error.
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": 0})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).SearchRead(context.Background(), "res.company", nil, []string{"id"}, nil)
	if err == nil {
		t.Fatal("expected an authentication error")
	}
}

func TestAuthenticateIsCachedAcrossCalls(t *testing.T) {
	authCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		var result any
		if req.Params.Service == "common" {
			authCalls++
			result = 7
		} else {
			result = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": result})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for i := 0; i < 3; i++ {
		if _, err := c.SearchRead(context.Background(), "res.company", nil, []string{"id"}, nil); err != nil {
			t.Fatal(err)
		}
	}
	if authCalls != 1 {
		t.Errorf("authenticate called %d times, want 1", authCalls)
	}
}
