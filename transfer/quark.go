package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pansave/internal"
	"pansave/utils"
)

const (
	quarkDefaultBaseURL = "https://drive-pc.quark.cn/1/clouddrive/share/sharepage"

	quarkOrigin  = "https://pan.quark.cn"
	quarkReferer = "https://pan.quark.cn/"

	// One listing page covers the common share; deeper pagination is a
	// known gap tracked in the stats output.
	quarkPageSize = 50

	quarkSaveTimeout = 60 * time.Second
)

// QuarkAdapter transfers Quark shares through the same JSON endpoints the
// web client calls: token exchange, content listing, then a save request
// into the destination account.
type QuarkAdapter struct {
	httpClient *utils.HTTPClient
	session    *Session
	baseURL    string
}

// NewQuarkAdapter creates a Quark adapter bound to an account session
func NewQuarkAdapter(httpClient *utils.HTTPClient, session *Session) *QuarkAdapter {
	return &QuarkAdapter{
		httpClient: httpClient,
		session:    session,
		baseURL:    quarkDefaultBaseURL,
	}
}

// SetBaseURL points the adapter at a different API host; used by tests
func (q *QuarkAdapter) SetBaseURL(baseURL string) {
	q.baseURL = strings.TrimSuffix(baseURL, "/")
}

// Platform returns the platform tag this adapter serves
func (q *QuarkAdapter) Platform() internal.Platform {
	return internal.PlatformQuark
}

// quarkEnvelope is the common response wrapper of the Quark drive API
type quarkEnvelope struct {
	Status  int             `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Envelope codes the token endpoint returns for a wrong or missing
// extraction code
var quarkPasscodeCodes = map[int]bool{
	41008: true,
	41009: true,
}

// isPasscodeRejection reports whether a token-endpoint error means the
// extraction code was refused. The API answers in Chinese (提取码 /
// 密码), so the match goes by envelope code first and falls back to the
// known message markers.
func isPasscodeRejection(te *internal.TransferError) bool {
	if code, ok := te.Context["provider_code"].(int); ok && quarkPasscodeCodes[code] {
		return true
	}
	for _, marker := range []string{"提取码", "密码", "passcode"} {
		if strings.Contains(te.Message, marker) {
			return true
		}
	}
	return false
}

// ResolveShare exchanges the share identifier and passcode for a share
// token (stoken) that authorizes the follow-up listing and save calls
func (q *QuarkAdapter) ResolveShare(ctx context.Context, pwdID, passcode string) (*internal.ShareSession, error) {
	if q.session.Expired() {
		return nil, internal.NewAuthError(fmt.Sprintf("account session expired at %v", q.session.ExpiresAt))
	}

	body := map[string]string{
		"pwd_id":   pwdID,
		"passcode": passcode,
	}

	resp, err := q.httpClient.PostJSONWithContext(ctx, withQuarkParams(q.baseURL+"/token", nil), body, q.headers())
	if err != nil {
		return nil, err
	}

	var data struct {
		Stoken string `json:"stoken"`
	}
	if err := q.decodeEnvelope(resp, &data); err != nil {
		if te, ok := err.(*internal.TransferError); ok && isPasscodeRejection(te) {
			return nil, internal.NewAuthError(fmt.Sprintf("share %s rejected passcode: %s", pwdID, te.Message))
		}
		return nil, err
	}
	if data.Stoken == "" {
		return nil, internal.NewInvalidResponseError(http.StatusOK, "token response carried no stoken")
	}

	internal.LogDebug("Resolved share %s", pwdID)

	return &internal.ShareSession{
		PwdID:    pwdID,
		Passcode: passcode,
		Stoken:   data.Stoken,
	}, nil
}

// ListContents fetches the first page of the share's root directory
func (q *QuarkAdapter) ListContents(ctx context.Context, session *internal.ShareSession) (*internal.ShareListing, error) {
	params := url.Values{}
	params.Set("pwd_id", session.PwdID)
	params.Set("stoken", session.Stoken)
	params.Set("pdir_fid", "0")
	params.Set("force", "0")
	params.Set("_page", "1")
	params.Set("_size", strconv.Itoa(quarkPageSize))
	params.Set("_sort", "file_type:asc,updated_at:desc")

	resp, err := q.httpClient.GetWithContext(ctx, withQuarkParams(q.baseURL+"/detail", params), q.headers())
	if err != nil {
		return nil, err
	}

	var data struct {
		Share struct {
			Title string `json:"title"`
		} `json:"share"`
		List []internal.FileDescriptor `json:"list"`
	}
	if err := q.decodeEnvelope(resp, &data); err != nil {
		return nil, err
	}

	if len(data.List) == 0 {
		return nil, internal.NewShareEmptyError(session.PwdID)
	}

	return &internal.ShareListing{
		Title: data.Share.Title,
		Files: data.List,
	}, nil
}

// CopyToAccount saves the listed entries into the destination directory of
// the logged-in account. The save call is the slow one on the provider
// side, so it gets its own generous deadline.
func (q *QuarkAdapter) CopyToAccount(ctx context.Context, session *internal.ShareSession, files []internal.FileDescriptor, destDirID string) error {
	if len(files) == 0 {
		return internal.NewShareEmptyError(session.PwdID)
	}

	fidList := make([]string, 0, len(files))
	fidTokenList := make([]string, 0, len(files))
	for _, f := range files {
		fidList = append(fidList, f.FID)
		fidTokenList = append(fidTokenList, f.ShareFidToken)
	}

	body := map[string]interface{}{
		"fid_list":       fidList,
		"fid_token_list": fidTokenList,
		"to_pdir_fid":    destDirID,
		"pwd_id":         session.PwdID,
		"stoken":         session.Stoken,
		"pdir_fid":       "0",
		"scene":          "link",
	}

	saveCtx, cancel := context.WithTimeout(ctx, quarkSaveTimeout)
	defer cancel()

	resp, err := q.httpClient.PostJSONWithContext(saveCtx, withQuarkParams(q.baseURL+"/save", nil), body, q.headers())
	if err != nil {
		return err
	}

	var data struct {
		TaskID string `json:"task_id"`
	}
	if err := q.decodeEnvelope(resp, &data); err != nil {
		return err
	}

	internal.LogDebug("Save accepted for share %s (%d entries, task %s)", session.PwdID, len(files), data.TaskID)
	return nil
}

// headers returns the browser-shaped header set the Quark endpoints expect
func (q *QuarkAdapter) headers() map[string]string {
	return map[string]string{
		"Origin":  quarkOrigin,
		"Referer": quarkReferer,
		"Cookie":  q.session.CookieHeader(),
	}
}

// decodeEnvelope reads the response body, checks the API envelope and
// unmarshals its data field into out
func (q *QuarkAdapter) decodeEnvelope(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return internal.NewInvalidResponseError(resp.StatusCode, fmt.Sprintf("failed to read response body: %v", err))
	}

	var envelope quarkEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return internal.NewInvalidResponseError(resp.StatusCode, fmt.Sprintf("malformed JSON response: %v", err))
	}

	if envelope.Status != 200 {
		msg := envelope.Message
		if msg == "" {
			msg = "request rejected"
		}
		return internal.NewInvalidResponseError(envelope.Status, msg).
			WithContext("provider_code", envelope.Code)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return internal.NewInvalidResponseError(resp.StatusCode, fmt.Sprintf("unexpected data payload: %v", err))
		}
	}
	return nil
}

// withQuarkParams appends the client-identification query parameters every
// Quark drive call carries
func withQuarkParams(endpoint string, extra url.Values) string {
	params := url.Values{}
	params.Set("pr", "ucpro")
	params.Set("fr", "pc")
	params.Set("uc_param_str", "")
	params.Set("__dt", strconv.Itoa(100+rand.Intn(9900)))
	params.Set("__t", strconv.FormatInt(time.Now().UnixMilli(), 10))
	for key, values := range extra {
		for _, v := range values {
			params.Add(key, v)
		}
	}
	return endpoint + "?" + params.Encode()
}
