package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

const (
	LocaleZH = "zh-CN"
	LocaleTW = "zh-TW"
	LocaleEN = "en-US"

	DefaultLocale = LocaleZH
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	loadOnce sync.Once
	messages map[string]map[string]string
	matcher  = language.NewMatcher([]language.Tag{
		language.MustParse(LocaleZH),
		language.MustParse(LocaleTW),
		language.MustParse(LocaleEN),
	})
	supported = []string{LocaleZH, LocaleTW, LocaleEN}
)

func load() {
	messages = make(map[string]map[string]string, len(supported))
	for _, locale := range supported {
		raw, err := localeFS.ReadFile(path.Join("locales", locale+".json"))
		if err != nil {
			continue
		}
		table := make(map[string]string)
		if err := json.Unmarshal(raw, &table); err != nil {
			continue
		}
		messages[locale] = table
	}
}

// NormalizeLocale 将任意语言标签归一到受支持的语言
func NormalizeLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLocale
	}
	return supported[index]
}

// ResolveLocale 依次读取 query lang、X-Locale、Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return NormalizeLocale(lang)
	}
	if locale := strings.TrimSpace(c.GetHeader("X-Locale")); locale != "" {
		return NormalizeLocale(locale)
	}
	return NormalizeLocale(c.GetHeader("Accept-Language"))
}

// T 翻译消息；缺失时依次回退默认语言与 key 本身
func T(locale, key string) string {
	loadOnce.Do(load)
	if table, ok := messages[NormalizeLocale(locale)]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
