package constant

// TrackerDomain is the host serving the OAuth callback, the options page and the backend API.
const TrackerDomain = "bangumi-auto-tracker.trim21.cn"

// Websites whose seasons can be mapped to bgm.tv subjects.
const (
	Bilibili = "bilibili"
	Iqiyi    = "iqiyi"
)

// Websites lists every supported website identifier.
var Websites = []string{Bilibili, Iqiyi}
