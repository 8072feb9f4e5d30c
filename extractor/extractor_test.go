package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"pansave/internal"
)

func TestExtract_SingleLinkWithLabeledPasscode(t *testing.T) {
	e := New()

	text := "quark netdisk https://pan.quark.cn/s/abcd12 extraction code: a1b2"
	records := e.Extract(text)

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	record := records[0]
	if record.Platform != internal.PlatformQuark {
		t.Errorf("Expected platform quark, got %s", record.Platform)
	}
	if record.URL != "https://pan.quark.cn/s/abcd12" {
		t.Errorf("Unexpected URL: %s", record.URL)
	}
	if record.Password != "a1b2" {
		t.Errorf("Expected passcode a1b2, got %q", record.Password)
	}
	if record.Status != internal.StatusPending {
		t.Errorf("Expected status pending, got %s", record.Status)
	}
}

func TestExtract_Platforms(t *testing.T) {
	e := New()

	tests := []struct {
		name     string
		text     string
		platform internal.Platform
		url      string
	}{
		{
			name:     "quark share",
			text:     "看这个 https://pan.quark.cn/s/1a2b3c4d",
			platform: internal.PlatformQuark,
			url:      "https://pan.quark.cn/s/1a2b3c4d",
		},
		{
			name:     "uc drive counts as quark",
			text:     "https://drive.uc.cn/s/deadbeef",
			platform: internal.PlatformQuark,
			url:      "https://drive.uc.cn/s/deadbeef",
		},
		{
			name:     "baidu share",
			text:     "资源 https://pan.baidu.com/s/1AbCdEfG 提取码: x9z2",
			platform: internal.PlatformBaidu,
			url:      "https://pan.baidu.com/s/1AbCdEfG",
		},
		{
			name:     "aliyun share",
			text:     "https://www.alipan.com/s/XyZ123ab",
			platform: internal.PlatformAliyun,
			url:      "https://www.alipan.com/s/XyZ123ab",
		},
		{
			name:     "tianyi share",
			text:     "https://cloud.189.cn/t/QRjUrmM36b2y",
			platform: internal.PlatformTianyi,
			url:      "https://cloud.189.cn/t/QRjUrmM36b2y",
		},
		{
			name:     "123pan share",
			text:     "https://www.123pan.com/s/A6cA-OqJWh",
			platform: internal.PlatformPan123,
			url:      "https://www.123pan.com/s/A6cA-OqJWh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := e.Extract(tt.text)
			if len(records) == 0 {
				t.Fatalf("Expected at least one record for %q", tt.text)
			}
			if records[0].Platform != tt.platform {
				t.Errorf("Expected platform %s, got %s", tt.platform, records[0].Platform)
			}
			if records[0].URL != tt.url {
				t.Errorf("Expected URL %s, got %s", tt.url, records[0].URL)
			}
		})
	}
}

func TestExtract_NoLinks(t *testing.T) {
	e := New()

	records := e.Extract("just an ordinary message with no links at all")
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestExtract_Passcodes(t *testing.T) {
	e := New()

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "chinese label",
			text:     "https://pan.quark.cn/s/abc123 提取码：ab12",
			expected: "ab12",
		},
		{
			name:     "chinese password label",
			text:     "密码: x1y2z3 https://pan.quark.cn/s/abc123",
			expected: "x1y2z3",
		},
		{
			name:     "english pwd label",
			text:     "https://pan.quark.cn/s/abc123 pwd: qq99",
			expected: "qq99",
		},
		{
			name:     "no passcode anywhere",
			text:     "看 https://pan.quark.cn/s/abc123 吧",
			expected: "",
		},
		{
			name:     "labeled code too long is rejected",
			text:     "https://pan.quark.cn/s/abc123 提取码: abcdef123456789",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := e.Extract(tt.text)
			if len(records) == 0 {
				t.Fatal("Expected a record")
			}
			if records[0].Password != tt.expected {
				t.Errorf("Expected passcode %q, got %q", tt.expected, records[0].Password)
			}
		})
	}
}

func TestExtract_PasscodeOutsideWindow(t *testing.T) {
	e := New()

	padding := make([]byte, passwordWindow+50)
	for i := range padding {
		padding[i] = '.'
	}
	text := "提取码: fa4r " + string(padding) + " https://pan.quark.cn/s/abc123"

	records := e.Extract(text)
	if len(records) == 0 {
		t.Fatal("Expected a record")
	}
	if records[0].Password != "" {
		t.Errorf("Expected passcode outside the window to be ignored, got %q", records[0].Password)
	}
}

func TestExtract_RepeatedURLKeepsOwnContext(t *testing.T) {
	e := New()

	padding := make([]byte, passwordWindow+60)
	for i := range padding {
		padding[i] = '.'
	}
	text := "第一批老电影合集 https://pan.quark.cn/s/abc123\n" +
		"提取码: ab12\n" +
		string(padding) + "\n" +
		"第二批纪录片合集 https://pan.quark.cn/s/abc123\n" +
		"提取码: cd34"

	records := e.Extract(text)
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Password != "ab12" {
		t.Errorf("Expected first occurrence passcode ab12, got %q", records[0].Password)
	}
	if records[1].Password != "cd34" {
		t.Errorf("Expected second occurrence passcode cd34, got %q", records[1].Password)
	}
	if records[0].Title != "第一批老电影合集" {
		t.Errorf("Unexpected first title: %q", records[0].Title)
	}
	if records[1].Title != "第二批纪录片合集" {
		t.Errorf("Unexpected second title: %q", records[1].Title)
	}
}

func TestExtract_Titles(t *testing.T) {
	e := New()

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "line text becomes the title",
			text:     "经典老电影合集分享 https://pan.quark.cn/s/abc123",
			expected: "经典老电影合集分享",
		},
		{
			name:     "html tags are stripped",
			text:     "<b>高清纪录片资源</b> https://pan.quark.cn/s/abc123",
			expected: "高清纪录片资源",
		},
		{
			name:     "too short after cleaning",
			text:     "看 https://pan.quark.cn/s/abc123",
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := e.Extract(tt.text)
			if len(records) == 0 {
				t.Fatal("Expected a record")
			}
			if records[0].Title != tt.expected {
				t.Errorf("Expected title %q, got %q", tt.expected, records[0].Title)
			}
		})
	}
}

func TestExtract_TitleTruncation(t *testing.T) {
	e := New()

	long := ""
	for i := 0; i < 80; i++ {
		long += "字"
	}
	records := e.Extract(long + " https://pan.quark.cn/s/abc123")
	if len(records) == 0 {
		t.Fatal("Expected a record")
	}
	if got := len([]rune(records[0].Title)); got != titleMaxRunes {
		t.Errorf("Expected title truncated to %d runes, got %d", titleMaxRunes, got)
	}
}

func TestExtract_SizeHint(t *testing.T) {
	e := New()

	records := e.Extract("合集 12.5GB https://pan.quark.cn/s/abc123")
	if len(records) == 0 {
		t.Fatal("Expected a record")
	}
	if records[0].SizeHint != "12.5GB" {
		t.Errorf("Expected size hint 12.5GB, got %q", records[0].SizeHint)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := New()
	text := "合集 https://pan.quark.cn/s/abc123 提取码: ab12\nhttps://pan.baidu.com/s/1XyZ 密码: cd34"

	first := e.Extract(text)
	second := e.Extract(text)

	if len(first) != len(second) {
		t.Fatalf("Run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].URL != second[i].URL || first[i].Password != second[i].Password {
			t.Errorf("Run %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestNewWithOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	overlay := `platforms:
  quark:
    - 'https?://mirror\.example\.com/s/[a-zA-Z0-9]+'
`
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatalf("Failed to write overlay: %v", err)
	}

	e, err := NewWithOverlay(path)
	if err != nil {
		t.Fatalf("NewWithOverlay failed: %v", err)
	}

	records := e.Extract("mirrored https://mirror.example.com/s/abc123")
	if len(records) != 1 {
		t.Fatalf("Expected 1 record from overlay pattern, got %d", len(records))
	}
	if records[0].Platform != internal.PlatformQuark {
		t.Errorf("Expected overlay match tagged quark, got %s", records[0].Platform)
	}
}

func TestNewWithOverlay_BadPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	overlay := `platforms:
  quark:
    - '[unclosed'
`
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatalf("Failed to write overlay: %v", err)
	}

	if _, err := NewWithOverlay(path); err == nil {
		t.Error("Expected error for invalid overlay pattern, got nil")
	}
}
