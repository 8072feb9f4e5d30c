package utils

import (
	"fmt"
	"net/url"
	"strings"

	"pansave/internal"
)

// ShareURLInfo contains parsed information from a netdisk share URL
type ShareURLInfo struct {
	OriginalURL string
	Platform    internal.Platform
	Domain      string
	PwdID       string
}

// shareDomains maps every accepted share host to its platform
var shareDomains = map[string]internal.Platform{
	"pan.quark.cn":        internal.PlatformQuark,
	"drive.uc.cn":         internal.PlatformQuark,
	"pan.baidu.com":       internal.PlatformBaidu,
	"yun.baidu.com":       internal.PlatformBaidu,
	"www.aliyundrive.com": internal.PlatformAliyun,
	"www.alipan.com":      internal.PlatformAliyun,
	"cloud.189.cn":        internal.PlatformTianyi,
	"www.123pan.com":      internal.PlatformPan123,
}

// ShareURLParser validates share URLs and extracts the provider-assigned
// share identifier (pwd_id) embedded in them
type ShareURLParser struct{}

// NewShareURLParser creates a new share URL parser
func NewShareURLParser() *ShareURLParser {
	return &ShareURLParser{}
}

// Parse validates rawURL and extracts its platform and share identifier
func (p *ShareURLParser) Parse(rawURL string) (*ShareURLInfo, error) {
	if rawURL == "" {
		return nil, internal.NewValidationError("url", "URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, internal.NewValidationError("url", fmt.Sprintf("invalid URL format: %v", err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, internal.NewValidationError("url", "URL must use http or https protocol")
	}

	host := strings.ToLower(parsed.Hostname())
	platform, ok := shareDomains[host]
	if !ok {
		return nil, internal.NewInvalidURLError(rawURL, fmt.Sprintf("unrecognized share host %q", host))
	}

	pwdID, err := extractPwdID(parsed)
	if err != nil {
		return nil, internal.NewInvalidURLError(rawURL, err.Error())
	}

	return &ShareURLInfo{
		OriginalURL: rawURL,
		Platform:    platform,
		Domain:      host,
		PwdID:       pwdID,
	}, nil
}

// extractPwdID pulls the share identifier out of the URL path. Most
// providers embed it after /s/; tianyi uses /t/ or a query parameter on
// its web share form.
func extractPwdID(parsed *url.URL) (string, error) {
	path := strings.TrimSuffix(parsed.Path, "/")

	for _, marker := range []string{"/s/", "/t/"} {
		if idx := strings.LastIndex(path, marker); idx != -1 {
			id := path[idx+len(marker):]
			if id == "" {
				return "", fmt.Errorf("share identifier missing after %s", marker)
			}
			return id, nil
		}
	}

	// tianyi web share form: https://cloud.189.cn/web/share?code=...
	if strings.HasSuffix(path, "/web/share") {
		if code := parsed.Query().Get("code"); code != "" {
			return code, nil
		}
		return "", fmt.Errorf("share code missing from web share URL")
	}

	return "", fmt.Errorf("no share identifier found in path %q", parsed.Path)
}
