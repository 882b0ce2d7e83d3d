package report

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"smm-analytics/internal/domain"
)

// Таблицы алиасов по каждому каноническому полю. Порядок имён задаёт
// приоритет при разрешении: берётся первое присутствующее значение.
var (
	scrapedLikesAliases    = []string{"likesCount", "likeCount", "likes"}
	scrapedCommentsAliases = []string{"commentsCount", "commentCount", "comments"}
	scrapedSharesAliases   = []string{"shareCount", "resharesCount", "repostsCount"}
	scrapedViewsAliases    = []string{"videoViewCount", "viewCount", "playCount"}
	scrapedMediaAliases    = []string{"displayUrl", "thumbnailUrl", "url", "permalink"}
	scrapedCaptionAliases  = []string{"caption", "text"}
	scrapedLinkAliases     = []string{"url", "permalink"}

	firstPartyCommentsAliases = []string{"comments", "commentsCount"}
	firstPartyViewsAliases    = []string{"views", "videoViewCount", "viewCount"}
	firstPartySharesAliases   = []string{"shares", "shareCount"}
	firstPartyMediaAliases    = []string{"url", "displayUrl"}
)

// Границы оценки просмотров видео, когда источник их не отдал.
const (
	scrapedViewsLowerBound = 10
	scrapedViewsUpperBound = 50

	firstPartyViewsLowerBound = 15
	firstPartyViewsUpperBound = 30
)

const shareOfLikesEstimate = 0.05

const contentTypeVideo = "Video"

const defaultContentType = "Image"

// Normalizer приводит сырые посты разных схем к каноническому виду.
// Источник случайности инъектируется, чтобы тесты могли зафиксировать seed.
type Normalizer struct {
	rng *rand.Rand
}

// NewNormalizer создаёт нормализатор.
func NewNormalizer(rng *rand.Rand) *Normalizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Normalizer{rng: rng}
}

// Normalize — тотальная функция: для любого сырого поста возвращает
// канонический вид, подставляя нули, эвристики и текущее время вместо
// отсутствующих полей.
func (n *Normalizer) Normalize(raw domain.RawPost, schema, owner, graphKey string) domain.NormalizedPost {
	if schema == domain.SchemaFirstParty {
		return n.normalizeFirstParty(raw, owner, graphKey)
	}
	return n.normalizeScraped(raw, owner, graphKey)
}

func (n *Normalizer) normalizeScraped(raw domain.RawPost, owner, graphKey string) domain.NormalizedPost {
	likes := resolveInt(raw, scrapedLikesAliases)
	comments := resolveInt(raw, scrapedCommentsAliases)
	shares := resolveInt(raw, scrapedSharesAliases)
	views := resolveInt(raw, scrapedViewsAliases)

	contentType := resolveString(raw, []string{"type"}, defaultContentType)
	if views == 0 && contentType == contentTypeVideo {
		views = likes * n.intBetween(scrapedViewsLowerBound, scrapedViewsUpperBound)
	}

	mediaURL := resolveString(raw, scrapedMediaAliases, "")
	if mediaURL == "" {
		mediaURL = firstImage(raw["images"])
	}

	return domain.NormalizedPost{
		ID:          resolveString(raw, []string{"id"}, n.pseudoID()),
		Caption:     resolveString(raw, scrapedCaptionAliases, ""),
		Likes:       likes,
		Comments:    comments,
		Shares:      shares,
		Views:       views,
		MediaURL:    mediaURL,
		Permalink:   resolveString(raw, scrapedLinkAliases, ""),
		Owner:       owner,
		Timestamp:   parseTimestamp(raw["timestamp"]),
		ContentType: contentType,
		GraphKey:    graphKey,
	}
}

func (n *Normalizer) normalizeFirstParty(raw domain.RawPost, owner, graphKey string) domain.NormalizedPost {
	likes := resolveInt(raw, []string{"likes"})
	comments := resolveInt(raw, firstPartyCommentsAliases)

	contentType := resolveString(raw, []string{"content_type"}, defaultContentType)
	views := resolveInt(raw, firstPartyViewsAliases)
	if views == 0 && contentType == contentTypeVideo {
		views = likes * n.intBetween(firstPartyViewsLowerBound, firstPartyViewsUpperBound)
	}

	shares := resolveInt(raw, firstPartySharesAliases)
	if shares == 0 && likes > 0 {
		estimated := int(math.Round(float64(likes) * shareOfLikesEstimate))
		if estimated < 1 {
			estimated = 1
		}
		shares = estimated
	}

	mediaURL := resolveString(raw, firstPartyMediaAliases, "")

	return domain.NormalizedPost{
		ID:          resolveString(raw, []string{"id"}, n.pseudoID()),
		Caption:     resolveString(raw, []string{"caption"}, ""),
		Likes:       likes,
		Comments:    comments,
		Shares:      shares,
		Views:       views,
		MediaURL:    mediaURL,
		Permalink:   resolveString(raw, []string{"permalink"}, mediaURL),
		Owner:       owner,
		Timestamp:   parseTimestamp(raw["timestamp"]),
		ContentType: contentType,
		GraphKey:    graphKey,
	}
}

func (n *Normalizer) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + n.rng.Intn(hi-lo+1)
}

// pseudoID выдаёт псевдослучайный четырёхзначный идентификатор. Уникальность
// не гарантируется: поле используется только для отображения.
func (n *Normalizer) pseudoID() string {
	return strconv.Itoa(1000 + n.rng.Intn(9000))
}

// resolveInt проходит по алиасам в порядке приоритета и возвращает первое
// присутствующее числовое значение; отсутствие и мусор дают 0, отрицательные
// значения обрезаются до 0.
func resolveInt(raw domain.RawPost, aliases []string) int {
	for _, key := range aliases {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		parsed, ok := coerceInt(value)
		if !ok {
			continue
		}
		if parsed < 0 {
			return 0
		}
		return parsed
	}
	return 0
}

func coerceInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// resolveString возвращает первое непустое строковое значение по алиасам.
func resolveString(raw domain.RawPost, aliases []string, def string) string {
	for _, key := range aliases {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return def
}

// firstImage достаёт ссылку из поля images, которое бывает и списком,
// и одиночным значением.
func firstImage(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

const fallbackTimeLayout = "2006-01-02T15:04:05"

// parseTimestamp никогда не падает: ISO-8601 (в том числе с суффиксом Z),
// затем формат без зоны, затем текущее время.
func parseTimestamp(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts
		}
		if ts, err := time.Parse(fallbackTimeLayout, v); err == nil {
			return ts
		}
	}
	return time.Now().UTC()
}
