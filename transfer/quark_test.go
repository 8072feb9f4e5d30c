package transfer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pansave/internal"
	"pansave/utils"
)

func testSession() *Session {
	return &Session{
		Cookies: map[string]*http.Cookie{
			"__puus": {Name: "__puus", Value: "test_puus"},
		},
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func newTestQuarkAdapter(t *testing.T, handler http.Handler) (*QuarkAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := utils.NewHTTPClientWithConfig(&utils.HTTPClientConfig{
		Timeout: 5 * time.Second,
		RetryConfig: &utils.RetryConfig{
			MaxAttempts: 1,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			Multiplier:  1,
		},
	})

	adapter := NewQuarkAdapter(client, testSession())
	adapter.SetBaseURL(server.URL)
	return adapter, server
}

func TestQuarkAdapter_ResolveShare(t *testing.T) {
	var gotBody map[string]string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Query().Get("pr") != "ucpro" || r.URL.Query().Get("fr") != "pc" {
			t.Error("Missing client identification parameters")
		}
		if cookie := r.Header.Get("Cookie"); cookie != "__puus=test_puus" {
			t.Errorf("Unexpected Cookie header: %s", cookie)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":200,"code":0,"message":"ok","data":{"stoken":"stoken_abc"}}`))
	})

	adapter, _ := newTestQuarkAdapter(t, handler)

	session, err := adapter.ResolveShare(context.Background(), "abcd12", "a1b2")
	if err != nil {
		t.Fatalf("ResolveShare failed: %v", err)
	}
	if session.Stoken != "stoken_abc" {
		t.Errorf("Expected stoken_abc, got %s", session.Stoken)
	}
	if gotBody["pwd_id"] != "abcd12" || gotBody["passcode"] != "a1b2" {
		t.Errorf("Unexpected request body: %v", gotBody)
	}
}

func TestQuarkAdapter_ResolveShare_BadPasscode(t *testing.T) {
	// The API reports rejections in Chinese; both the envelope code and
	// the message text must map to an auth error
	tests := []struct {
		name     string
		response string
	}{
		{"known envelope code", `{"status":400,"code":41008,"message":"提取码错误","data":{}}`},
		{"message marker only", `{"status":400,"code":0,"message":"分享密码验证失败","data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.response))
			})

			adapter, _ := newTestQuarkAdapter(t, handler)

			_, err := adapter.ResolveShare(context.Background(), "abcd12", "wrong")
			if err == nil {
				t.Fatal("Expected error for rejected passcode")
			}
			te, ok := err.(*internal.TransferError)
			if !ok || te.Type != internal.ErrAuth {
				t.Errorf("Expected an auth error, got %T: %v", err, err)
			}
		})
	}
}

func TestQuarkAdapter_ResolveShare_ExpiredSession(t *testing.T) {
	adapter := NewQuarkAdapter(utils.NewHTTPClient(), &Session{
		Cookies:   map[string]*http.Cookie{},
		ExpiresAt: time.Now().Add(-time.Hour),
	})

	_, err := adapter.ResolveShare(context.Background(), "abcd12", "")
	if err == nil {
		t.Fatal("Expected error for expired session")
	}
	te, ok := err.(*internal.TransferError)
	if !ok || te.Type != internal.ErrAuth {
		t.Errorf("Expected an auth error, got %T: %v", err, err)
	}
}

func TestQuarkAdapter_ListContents(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detail" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("pwd_id") != "abcd12" || q.Get("stoken") != "stoken_abc" {
			t.Errorf("Missing share parameters: %v", q)
		}
		if q.Get("pdir_fid") != "0" || q.Get("_page") != "1" {
			t.Errorf("Unexpected paging parameters: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":200,"code":0,"message":"ok","data":{
			"share":{"title":"movie pack"},
			"list":[
				{"fid":"f1","share_fid_token":"t1","file_name":"a.mkv","size":1024,"dir":false},
				{"fid":"f2","share_fid_token":"t2","file_name":"extras","size":0,"dir":true}
			]}}`))
	})

	adapter, _ := newTestQuarkAdapter(t, handler)

	listing, err := adapter.ListContents(context.Background(), &internal.ShareSession{
		PwdID:  "abcd12",
		Stoken: "stoken_abc",
	})
	if err != nil {
		t.Fatalf("ListContents failed: %v", err)
	}
	if listing.Title != "movie pack" {
		t.Errorf("Expected title 'movie pack', got %q", listing.Title)
	}
	if len(listing.Files) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(listing.Files))
	}
	if listing.Files[0].FID != "f1" || listing.Files[0].ShareFidToken != "t1" {
		t.Errorf("Unexpected first entry: %+v", listing.Files[0])
	}
	if !listing.Files[1].IsDir {
		t.Error("Expected second entry to be a directory")
	}
}

func TestQuarkAdapter_ListContents_EmptyShare(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":200,"code":0,"message":"ok","data":{"share":{"title":"gone"},"list":[]}}`))
	})

	adapter, _ := newTestQuarkAdapter(t, handler)

	_, err := adapter.ListContents(context.Background(), &internal.ShareSession{PwdID: "abcd12", Stoken: "s"})
	if err == nil {
		t.Fatal("Expected error for empty share")
	}
	te, ok := err.(*internal.TransferError)
	if !ok || te.Type != internal.ErrShareEmpty {
		t.Errorf("Expected a share-empty error, got %T: %v", err, err)
	}
}

func TestQuarkAdapter_CopyToAccount(t *testing.T) {
	var gotBody map[string]interface{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/save" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":200,"code":0,"message":"ok","data":{"task_id":"task_1"}}`))
	})

	adapter, _ := newTestQuarkAdapter(t, handler)

	files := []internal.FileDescriptor{
		{FID: "f1", ShareFidToken: "t1"},
		{FID: "f2", ShareFidToken: "t2"},
	}
	err := adapter.CopyToAccount(context.Background(), &internal.ShareSession{
		PwdID:  "abcd12",
		Stoken: "stoken_abc",
	}, files, "dest_dir")
	if err != nil {
		t.Fatalf("CopyToAccount failed: %v", err)
	}

	if gotBody["to_pdir_fid"] != "dest_dir" {
		t.Errorf("Expected to_pdir_fid dest_dir, got %v", gotBody["to_pdir_fid"])
	}
	if gotBody["scene"] != "link" {
		t.Errorf("Expected scene link, got %v", gotBody["scene"])
	}
	fids, ok := gotBody["fid_list"].([]interface{})
	if !ok || len(fids) != 2 {
		t.Errorf("Unexpected fid_list: %v", gotBody["fid_list"])
	}
}

func TestQuarkAdapter_CopyToAccount_NoFiles(t *testing.T) {
	adapter := NewQuarkAdapter(utils.NewHTTPClient(), testSession())

	err := adapter.CopyToAccount(context.Background(), &internal.ShareSession{PwdID: "abcd12"}, nil, "0")
	if err == nil {
		t.Fatal("Expected error for empty file list")
	}
}

func TestQuarkAdapter_ProviderError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":500,"code":500,"message":"capacity limit exceeded","data":{}}`))
	})

	adapter, _ := newTestQuarkAdapter(t, handler)

	_, err := adapter.ResolveShare(context.Background(), "abcd12", "")
	if err == nil {
		t.Fatal("Expected error for provider rejection")
	}
	te, ok := err.(*internal.TransferError)
	if !ok || te.Type != internal.ErrInvalidResponse {
		t.Errorf("Expected an invalid-response error, got %T: %v", err, err)
	}
}
