package utils

import (
	"testing"

	"pansave/internal"
)

func TestShareURLParser_Parse(t *testing.T) {
	parser := NewShareURLParser()

	tests := []struct {
		name     string
		url      string
		platform internal.Platform
		pwdID    string
	}{
		{
			name:     "quark share",
			url:      "https://pan.quark.cn/s/abcd1234",
			platform: internal.PlatformQuark,
			pwdID:    "abcd1234",
		},
		{
			name:     "uc drive maps to quark",
			url:      "https://drive.uc.cn/s/deadbeef",
			platform: internal.PlatformQuark,
			pwdID:    "deadbeef",
		},
		{
			name:     "baidu share",
			url:      "https://pan.baidu.com/s/1AbCdEfG",
			platform: internal.PlatformBaidu,
			pwdID:    "1AbCdEfG",
		},
		{
			name:     "aliyun share",
			url:      "https://www.alipan.com/s/XyZ123",
			platform: internal.PlatformAliyun,
			pwdID:    "XyZ123",
		},
		{
			name:     "tianyi short link",
			url:      "https://cloud.189.cn/t/QRjUrmM36b2y",
			platform: internal.PlatformTianyi,
			pwdID:    "QRjUrmM36b2y",
		},
		{
			name:     "tianyi web share form",
			url:      "https://cloud.189.cn/web/share?code=QRjUrmM36b2y",
			platform: internal.PlatformTianyi,
			pwdID:    "QRjUrmM36b2y",
		},
		{
			name:     "trailing slash",
			url:      "https://pan.quark.cn/s/abcd1234/",
			platform: internal.PlatformQuark,
			pwdID:    "abcd1234",
		},
		{
			name:     "uppercase host",
			url:      "https://PAN.QUARK.CN/s/abcd1234",
			platform: internal.PlatformQuark,
			pwdID:    "abcd1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parser.Parse(tt.url)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if info.Platform != tt.platform {
				t.Errorf("Expected platform %s, got %s", tt.platform, info.Platform)
			}
			if info.PwdID != tt.pwdID {
				t.Errorf("Expected pwd_id %s, got %s", tt.pwdID, info.PwdID)
			}
		})
	}
}

func TestShareURLParser_Rejects(t *testing.T) {
	parser := NewShareURLParser()

	tests := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "not a url", url: "not a url at all"},
		{name: "ftp scheme", url: "ftp://pan.quark.cn/s/abcd1234"},
		{name: "unknown host", url: "https://example.com/s/abcd1234"},
		{name: "missing identifier", url: "https://pan.quark.cn/s/"},
		{name: "no share path", url: "https://pan.quark.cn/about"},
		{name: "web share without code", url: "https://cloud.189.cn/web/share"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.Parse(tt.url); err == nil {
				t.Errorf("Expected error for %q, got nil", tt.url)
			}
		})
	}
}
