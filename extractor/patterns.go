package extractor

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"pansave/internal"
)

// platformPatterns is the built-in ordered set of share-URL patterns per
// platform. Order matters: the first pattern wins when variants overlap.
var platformPatterns = map[internal.Platform][]string{
	internal.PlatformQuark: {
		`https?://pan\.quark\.cn/s/[a-zA-Z0-9]+`,
		`https?://drive\.uc\.cn/s/[a-zA-Z0-9]+`,
	},
	internal.PlatformBaidu: {
		`https?://pan\.baidu\.com/s/[a-zA-Z0-9_-]+`,
		`https?://yun\.baidu\.com/s/[a-zA-Z0-9_-]+`,
	},
	internal.PlatformAliyun: {
		`https?://www\.aliyundrive\.com/s/[a-zA-Z0-9]+`,
		`https?://www\.alipan\.com/s/[a-zA-Z0-9]+`,
	},
	internal.PlatformTianyi: {
		`https?://cloud\.189\.cn/t/[a-zA-Z0-9]+`,
		`https?://cloud\.189\.cn/web/share\?[a-zA-Z0-9&=]+`,
	},
	internal.PlatformPan123: {
		`https?://www\.123pan\.com/s/[a-zA-Z0-9_-]+`,
	},
}

// passwordPatterns is the ordered list of passcode patterns. Labeled forms
// come first; the bare 4-8 alphanumeric run is a deliberately permissive
// fallback and will false-positive on ordinary tokens.
var passwordPatterns = []string{
	`(?:密码|提取码|提取密码|访问码)[:：\s]*([a-zA-Z0-9]{4,8})\b`,
	`(?i)(?:extraction code|password|passcode|pwd)[:：\s]*([a-zA-Z0-9]{4,8})\b`,
	`\b([a-zA-Z0-9]{4,8})\b`,
}

// sizeHintPatterns match human-readable size annotations near a link
var sizeHintPatterns = []string{
	`(?i)大小[:：]\s*(\d+(?:\.\d+)?\s*[KMGT]B)`,
	`(?i)(\d+(?:\.\d+)?\s*[KMGT]B)`,
}

// patternOverlay is the YAML shape of a user-supplied pattern file
type patternOverlay struct {
	Platforms map[string][]string `yaml:"platforms"`
}

// compiledPlatform couples a platform tag with its compiled URL patterns
type compiledPlatform struct {
	platform internal.Platform
	patterns []*regexp.Regexp
}

func compileBuiltins() ([]compiledPlatform, error) {
	compiled := make([]compiledPlatform, 0, len(platformPatterns))
	for _, platform := range internal.AllPlatforms() {
		exprs, ok := platformPatterns[platform]
		if !ok {
			continue
		}
		cp := compiledPlatform{platform: platform}
		for _, expr := range exprs {
			re, err := regexp.Compile(`(?i)` + expr)
			if err != nil {
				return nil, fmt.Errorf("invalid built-in pattern for %s: %w", platform, err)
			}
			cp.patterns = append(cp.patterns, re)
		}
		compiled = append(compiled, cp)
	}
	return compiled, nil
}

// loadOverlay parses a YAML pattern file and compiles its patterns,
// appending them after the built-ins of the named platform
func loadOverlay(path string) (map[internal.Platform][]*regexp.Regexp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}

	var overlay patternOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse pattern file: %w", err)
	}

	extra := make(map[internal.Platform][]*regexp.Regexp)
	for name, exprs := range overlay.Platforms {
		platform := internal.Platform(name)
		if !platform.IsValid() {
			return nil, internal.NewValidationErrorWithValue("platform", "unknown platform in pattern file", name)
		}
		for _, expr := range exprs {
			re, err := regexp.Compile(`(?i)` + expr)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q for %s: %w", expr, name, err)
			}
			extra[platform] = append(extra[platform], re)
		}
	}
	return extra, nil
}
